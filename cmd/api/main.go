package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"absensi/internal/attendance"
	"absensi/internal/config"
	"absensi/internal/handler"
	"absensi/internal/lock"
	"absensi/internal/logger"
	"absensi/internal/metrics"
	"absensi/internal/queue"
	"absensi/internal/store"
	"absensi/internal/upload"
	"absensi/internal/users"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Production())

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	checks := map[string]handler.Pinger{"database": db}

	var redisClient *store.Redis
	if cfg.LockBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable")
		}
		checks["redis"] = redisClient
	}

	var locker lock.Locker = lock.NewInMemory()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedis(redisClient.Client, "")
	}

	var feed queue.Publisher
	switch cfg.QueueBackend {
	case "redis":
		feed = queue.NewRedisQueue(redisClient.Client, cfg.FeedKey)
	case "memory":
		// No consumer lives in this process; drain so publishes never block.
		q := queue.NewInMemory(64)
		drain(q)
		feed = q
	default:
		log.Info().Msg("attendance feed disabled")
	}

	images, err := upload.NewDisk(cfg.UploadDir, "/uploads")
	if err != nil {
		return err
	}

	m := metrics.New()
	h := handler.New(
		users.NewService(users.NewRepository(db.Client), images, locker, m),
		attendance.NewService(attendance.NewRepository(db.Client), cfg.SimilarityThreshold, feed, m),
		checks,
	)
	r := handler.NewRouter(handler.RouterConfig{
		PublicDir:      cfg.PublicDir,
		UploadDir:      cfg.UploadDir,
		ModelsDir:      cfg.ModelsDir,
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, h, m)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

// drain logs feed messages published to the in-process queue.
func drain(q *queue.InMemory) {
	msgs, err := q.Consume(context.Background())
	if err != nil {
		return
	}
	go func() {
		for msg := range msgs {
			log.Debug().Str("type", msg.Type).RawJSON("body", msg.Body).Msg("feed message")
		}
	}()
}
