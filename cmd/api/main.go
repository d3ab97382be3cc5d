package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitvote/internal/auth"
	"bitvote/internal/config"
	"bitvote/internal/db"
	"bitvote/internal/feedback"
	"bitvote/internal/logger"
	"bitvote/internal/metrics"
	"bitvote/internal/places"
	"bitvote/internal/realtime"
	"bitvote/internal/reservation"
	"bitvote/internal/restaurant"
	"bitvote/internal/router"
	"bitvote/internal/session"
	"bitvote/internal/storage"
	"bitvote/internal/sweeper"
	"bitvote/internal/vote"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bitvote:", err)
		os.Exit(1)
	}
}

func run() error {
	// ───────────────────────── CONFIG ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── DB ─────────────────────────
	pool, err := db.ConnectPostgres(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()

	// ───────────────────────── REALTIME ─────────────────────────
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	var publisher realtime.Publisher = hub
	if cfg.Redis.Addr != "" {
		rdb, err := realtime.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()

		broker := realtime.NewRedisBroker(rdb, hub, log)
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("redis subscription stopped", zap.Error(err))
			}
		}()
		publisher = broker
		log.Info("realtime events fan out through redis", zap.String("addr", cfg.Redis.Addr))
	}

	// ───────────────────────── SERVICES ─────────────────────────
	tokens, err := auth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	voteRepo := vote.NewPostgresRepository(pool)
	voteSvc := vote.NewService(voteRepo, publisher, log, m)
	sessionSvc := session.NewService(session.NewPostgresRepository(pool), tokens, voteRepo, publisher, log)
	searchSvc := restaurant.NewService(places.NewClient(cfg.Maps), cfg.Search, cfg.Maps, log, m)
	feedbackSvc := feedback.NewService(feedback.NewPostgresRepository(pool))

	deps := router.Deps{
		Log:          log,
		Metrics:      m,
		Tokens:       tokens,
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		CallsPerMin:  cfg.Telephony.CallsPerMinute,
		Restaurants:  restaurant.NewHandler(searchSvc, cfg.Search, log),
		Votes:        vote.NewHandler(voteSvc, log),
		Sessions:     session.NewHandler(sessionSvc, log),
		Realtime:     realtime.NewHandler(hub),
		Feedback:     feedback.NewHandler(feedbackSvc),
	}

	if cfg.TelephonyEnabled() {
		deps.Reservations = reservation.NewHandler(
			reservation.NewService(reservation.NewTwilioClient(cfg.Telephony), log),
		)
	} else {
		log.Warn("telephony not configured, POST /calls is disabled")
	}

	// ───────────────────────── SWEEPER ─────────────────────────
	if cfg.Sweeper.Enabled {
		archive, err := newArchiver(ctx, cfg.Storage, log)
		if err != nil {
			return err
		}
		sw := sweeper.New(sessionSvc, voteRepo, archive, cfg.Sweeper.MaxAge, log, m)
		go sw.Run(ctx, cfg.Sweeper.Interval)
	}

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router.New(deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	voteSvc.Wait()
	log.Info("stopped")
	return nil
}

// newArchiver returns nil when no bucket is configured.
func newArchiver(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (sweeper.Archiver, error) {
	if cfg.Bucket == "" {
		log.Info("archive bucket not configured, purged sessions are not archived")
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init archive storage: %w", err)
	}
	return client, nil
}
