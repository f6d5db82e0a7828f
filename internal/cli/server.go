package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/infra/memory"
	"quiz-assessment-service/internal/infra/opentdb"
	pgbank "quiz-assessment-service/internal/infra/postgres"
	redisinfra "quiz-assessment-service/internal/infra/redis"
	transport "quiz-assessment-service/internal/transport/http"
)

const (
	defaultQuizDuration  = 30 * time.Minute
	defaultQuestionCount = 15
	defaultFetchTimeout  = 10 * time.Second
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	questionCount := cfg.Quiz.Questions
	if questionCount <= 0 {
		questionCount = defaultQuestionCount
	}

	var source app.QuestionSource = opentdb.NewClient(
		cfg.Trivia.URL,
		questionCount,
		config.Duration(cfg.Trivia.Timeout, defaultFetchTimeout),
	)
	if pool != nil {
		source = pgbank.NewQuestionBank(pool, questionCount)
	}

	var handoff app.HandoffRepository = memory.NewHandoffStore()
	if redisClient != nil {
		handoff = redisinfra.NewHandoffStore(redisClient, redisTTL)
	}

	duration := config.Duration(cfg.Quiz.Duration, defaultQuizDuration)
	service := app.NewQuizService(memory.NewSessionRegistry(), source, handoff, duration)
	wsHandler := transport.NewWSHandler(service)
	resultsHandler := transport.NewResultsHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/results", resultsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
