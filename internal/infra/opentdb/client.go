package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/domain"
)

// Open Trivia DB response codes (https://opentdb.com/api_config.php).
const (
	codeSuccess        = 0
	codeTokenNotFound  = 3
	codeTokenExhausted = 4
)

const DefaultBaseURL = "https://opentdb.com"

// Client fetches multiple-choice questions from the Open Trivia DB API and
// normalizes them: HTML entities decoded, options shuffled with a uniform
// Fisher-Yates permutation, IDs assigned sequentially from 1.
//
// A session token is requested lazily so repeated fetches avoid duplicate
// questions; concurrent session starts share one token request via
// singleflight. Token errors are not fatal, the fetch just proceeds untokened.
type Client struct {
	httpClient *http.Client
	baseURL    string
	amount     int

	rndMu sync.Mutex
	rnd   *rand.Rand

	sf      singleflight.Group
	tokenMu sync.RWMutex
	token   string
}

func NewClient(baseURL string, amount int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		amount:     amount,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type rawQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []rawQuestion `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// FetchQuestions requests one batch of multiple-choice questions. A stale or
// exhausted token is reset and the request retried once; every other failure
// surfaces to the caller with no retry.
func (c *Client) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	resp, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if resp.ResponseCode == codeTokenNotFound || resp.ResponseCode == codeTokenExhausted {
		c.resetToken()
		if resp, err = c.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if resp.ResponseCode != codeSuccess {
		return nil, fmt.Errorf("%w: response code %d", domain.ErrTriviaUnavailable, resp.ResponseCode)
	}

	questions := make([]domain.Question, 0, len(resp.Results))
	for i, raw := range resp.Results {
		correct := html.UnescapeString(raw.CorrectAnswer)
		options := make([]string, 0, len(raw.IncorrectAnswers)+1)
		for _, incorrect := range raw.IncorrectAnswers {
			options = append(options, html.UnescapeString(incorrect))
		}
		options = append(options, correct)
		c.shuffle(options)

		questions = append(questions, domain.Question{
			ID:            i + 1,
			Text:          html.UnescapeString(raw.Question),
			Options:       options,
			CorrectAnswer: correct,
		})
	}
	return questions, nil
}

func (c *Client) fetch(ctx context.Context) (apiResponse, error) {
	params := url.Values{}
	params.Set("amount", strconv.Itoa(c.amount))
	params.Set("type", "multiple")
	if token := c.sessionToken(ctx); token != "" {
		params.Set("token", token)
	}

	var out apiResponse
	if err := c.getJSON(ctx, c.baseURL+"/api.php?"+params.Encode(), &out); err != nil {
		return apiResponse{}, err
	}
	return out, nil
}

// sessionToken returns the cached token, requesting one on first use.
func (c *Client) sessionToken(ctx context.Context) string {
	c.tokenMu.RLock()
	token := c.token
	c.tokenMu.RUnlock()
	if token != "" {
		return token
	}

	result, err, _ := c.sf.Do("token", func() (interface{}, error) {
		c.tokenMu.RLock()
		cached := c.token
		c.tokenMu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		var resp tokenResponse
		if err := c.getJSON(ctx, c.baseURL+"/api_token.php?command=request", &resp); err != nil {
			return "", err
		}
		if resp.ResponseCode != codeSuccess || resp.Token == "" {
			return "", fmt.Errorf("%w: token response code %d", domain.ErrTriviaUnavailable, resp.ResponseCode)
		}

		c.tokenMu.Lock()
		c.token = resp.Token
		c.tokenMu.Unlock()
		return resp.Token, nil
	})
	if err != nil {
		return ""
	}
	return result.(string)
}

func (c *Client) resetToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTriviaUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrTriviaUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTriviaUnavailable, err)
	}
	return nil
}

// shuffle applies a uniform Fisher-Yates permutation. rand.Rand is not safe
// for concurrent use, so the source is guarded.
func (c *Client) shuffle(options []string) {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	c.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}
