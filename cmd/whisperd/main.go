package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/callback"
	"github.com/cvranjith/faster-whisper/internal/config"
	"github.com/cvranjith/faster-whisper/internal/daemon"
	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/logging"
	"github.com/cvranjith/faster-whisper/internal/transcribe"
	"github.com/cvranjith/faster-whisper/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("WHISPERD_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	limiter := worker.NewLimiter(cfg.Jobs.MaxConcurrent)
	transcriber := transcribe.NewService(cfg.Transcriber)
	notifier := callback.New(cfg)
	executor := worker.NewExecutor(cfg, store, transcriber, notifier, limiter, logger)
	sweeper := jobs.NewSweeper(store, cfg.Paths.WorkDir, cfg.RetentionTTL(), logger)
	svc := api.NewService(cfg, store, limiter, executor, sweeper, logger)

	d, err := daemon.New(cfg, svc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("whisperd shutting down")
}
