package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
)

// NewWorkerCmd runs a standalone statistics worker draining the shared Redis
// queue. Useful when aggregation load should be scaled independently of the
// API servers.
func NewWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a statistics aggregation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), *configPath)
		},
	}
}

func runWorker(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	if cfg.Redis.Addr == "" {
		svc.log.Warn("redis not configured: this worker only sees jobs enqueued in-process")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			svc.log.Info("signal received, stopping worker")
		case <-workerCtx.Done():
		}
		cancel()
	}()

	if err := svc.worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
		return err
	}
	return nil
}
