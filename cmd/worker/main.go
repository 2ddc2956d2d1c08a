package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"absensi/internal/attendance"
	"absensi/internal/config"
	"absensi/internal/logger"
	"absensi/internal/queue"
	"absensi/internal/store"
)

// Worker consumes the attendance feed and logs every stored record.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Production())

	if cfg.QueueBackend != "redis" {
		log.Fatal().Str("queue_backend", cfg.QueueBackend).Msg("worker needs QUEUE_BACKEND=redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable, will keep retrying")
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.FeedKey)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Str("key", cfg.FeedKey).Msg("worker started, waiting for messages")
	counts := map[string]int{}
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceCreated {
			log.Warn().Str("type", msg.Type).Msg("skipping unknown message")
			continue
		}
		var rec attendance.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			log.Error().Err(err).Msg("decode attendance record failed")
			continue
		}
		counts[rec.Status]++
		log.Info().
			Int64("record_id", rec.ID).
			Int64("user_id", rec.UserID).
			Str("username", rec.Username).
			Str("location", rec.Location).
			Str("status", rec.Status).
			Time("time_absen", rec.TimeAbsen).
			Msg("attendance recorded")
	}

	log.Info().
		Int("success", counts[attendance.StatusSuccess]).
		Int("failed", counts[attendance.StatusFailed]).
		Msg("worker stopped")
}
