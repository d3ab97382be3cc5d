package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bitvote/internal/config"
	"bitvote/internal/db"
	"bitvote/internal/logger"
	"bitvote/internal/session"
	"bitvote/internal/storage"
	"bitvote/internal/sweeper"
	"bitvote/internal/vote"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintln(os.Stderr, "bitvote-sweeper:", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.LoadSweeper()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.ConnectPostgres(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	voteRepo := vote.NewPostgresRepository(pool)
	sessions := session.NewService(session.NewPostgresRepository(pool), nil, voteRepo, nil, log)

	var archive sweeper.Archiver
	if cfg.Storage.Bucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("init archive storage: %w", err)
		}
		archive = client
	}

	sw := sweeper.New(sessions, voteRepo, archive, cfg.Sweeper.MaxAge, log, nil)

	if once {
		n, err := sw.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info("sweep finished", zap.Int("purged", n))
		return nil
	}

	sw.Run(ctx, cfg.Sweeper.Interval)
	return nil
}
