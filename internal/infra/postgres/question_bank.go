package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/domain"
)

// QuestionBank serves quiz questions from Postgres, as an offline alternative
// to the remote trivia API. Rows are sampled at random; options are shuffled
// and IDs assigned the same way the remote adapter does it, so sessions are
// indistinguishable downstream.
type QuestionBank struct {
	pool   *pgxpool.Pool
	amount int

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(pool *pgxpool.Pool, amount int) *QuestionBank {
	return &QuestionBank{
		pool:   pool,
		amount: amount,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT text, correct_answer, incorrect_answers FROM questions ORDER BY random() LIMIT $1`,
		b.amount)
	if err != nil {
		return nil, fmt.Errorf("query question bank: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			text         string
			correct      string
			incorrectRaw []byte
		)
		if err := rows.Scan(&text, &correct, &incorrectRaw); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		var incorrect []string
		if err := json.Unmarshal(incorrectRaw, &incorrect); err != nil {
			return nil, fmt.Errorf("unmarshal incorrect answers: %w", err)
		}

		options := append(append(make([]string, 0, len(incorrect)+1), incorrect...), correct)
		b.shuffle(options)

		questions = append(questions, domain.Question{
			ID:            len(questions) + 1,
			Text:          text,
			Options:       options,
			CorrectAnswer: correct,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question rows: %w", err)
	}
	return questions, nil
}

func (b *QuestionBank) shuffle(options []string) {
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	b.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}
