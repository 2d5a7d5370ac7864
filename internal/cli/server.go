package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	pginfra "quiz-attempt-service/internal/infra/postgres"
	redisinfra "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/logging"
	transport "quiz-attempt-service/internal/transport/http"
	"quiz-attempt-service/internal/worker"
)

// NewServeCmd builds the CLI subcommand to start the API server. The server
// always runs an in-process statistics worker; with Redis configured the
// queue is shared, so extra `worker` processes can drain it too.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *port)
		},
	}
}

// statsQueue is both ends of the statistics job pipe.
type statsQueue interface {
	app.TaskQueue
	worker.JobSource
}

// services bundles everything the commands wire together.
type services struct {
	cfg      config.Config
	log      *slog.Logger
	catalog  app.CatalogRepository
	writer   *pginfra.CatalogStore // nil without postgres
	attempts *app.AttemptService
	stats    *app.StatsService
	queue    statsQueue
	feed     *worker.Feed
	worker   *worker.StatsWorker
	close    func()
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	log := logging.New(cfg.Log.Level)

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
	}

	var (
		loader  memory.CatalogLoader
		writer  *pginfra.CatalogStore
		attRepo app.AttemptRepository
	)
	if pool != nil {
		store := pginfra.NewCatalogStore(pool)
		loader = store
		writer = store
		attRepo = pginfra.NewAttemptStore(pool)
	} else {
		log.Warn("postgres not configured, using in-memory stores with sample data")
		loader = memory.NewStaticCatalog(sampleQuizzes()...)
		attRepo = memory.NewAttemptStore()
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	catalog := memory.NewCatalogRepository(loader, catalogTTL)

	var queue statsQueue
	var snapshots app.StatsStore
	if redisClient != nil {
		queue = redisinfra.NewQueue(redisClient)
		snapshots = redisinfra.NewSnapshotStore(redisClient, config.TTLDuration(cfg.Stats.SnapshotTTL, time.Hour))
	} else {
		queue = memory.NewQueue(cfg.Stats.QueueBuffer)
		snapshots = memory.NewSnapshotStore()
	}

	statsService := app.NewStatsService(catalog, attRepo, snapshots, log)
	attemptService := app.NewAttemptService(catalog, attRepo, queue, log)
	feed := worker.NewFeed()

	return &services{
		cfg:      cfg,
		log:      log,
		catalog:  catalog,
		writer:   writer,
		attempts: attemptService,
		stats:    statsService,
		queue:    queue,
		feed:     feed,
		worker:   worker.NewStatsWorker(queue, statsService, feed, log),
		close: func() {
			if pool != nil {
				pool.Close()
			}
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

func runServe(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go func() {
		_ = svc.worker.Run(workerCtx)
	}()

	api := transport.NewAPI(svc.attempts, svc.stats, svc.catalog, svc.log)
	wsHandler := transport.NewStatsFeedHandler(svc.stats, svc.feed, svc.log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws/statistics", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		svc.log.Info("starting quiz attempt service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			svc.log.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		svc.log.Info("shutting down server")
	case <-ctx.Done():
		svc.log.Info("context canceled, shutting down server")
	}
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the in-memory catalog for demos and local development.
func sampleQuizzes() []domain.Quiz {
	quizID := uuid.NewString()
	q1 := uuid.NewString()
	o1, o2, o3 := uuid.NewString(), uuid.NewString(), uuid.NewString()
	return []domain.Quiz{
		{
			ID:          quizID,
			Title:       "Arithmetic warmup",
			Description: "A one-question demo quiz",
			IsLive:      true,
			Questions: []domain.Question{
				{
					ID:     q1,
					QuizID: quizID,
					Text:   "What is 2 + 2?",
					Options: []domain.Option{
						{ID: o1, QuestionID: q1, Text: "3", Correct: false},
						{ID: o2, QuestionID: q1, Text: "4", Correct: true},
						{ID: o3, QuestionID: q1, Text: "5", Correct: false},
					},
				},
			},
		},
	}
}
