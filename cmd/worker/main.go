package main

import (
	"context"
	stdlog "log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"hostel/internal/attendance"
	"hostel/internal/cache"
	"hostel/internal/config"
	"hostel/internal/jobs"
	"hostel/internal/logging"
	"hostel/internal/occupancy"
	"hostel/internal/queue"
	"hostel/internal/roster"
	"hostel/internal/store"
)

// Worker consumes the shared redis queue: occupancy recounts and daily count
// refreshes after attendance marks.
func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is consumed by the api process; the worker needs redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StoreBackend, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("store open failed", zap.Error(err))
	}
	defer st.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		log.Warn("redis not reachable yet, consumer will retry", zap.Error(err))
	}

	q, err := queue.New(cfg.QueueBackend, redisClient.Client, cfg.QueueKey)
	if err != nil {
		log.Fatal("queue init failed", zap.Error(err))
	}
	c, err := cache.New(cfg.CacheBackend, redisClient.Client, "hostel:", cfg.CacheTTL)
	if err != nil {
		log.Fatal("cache init failed", zap.Error(err))
	}

	w := &jobs.Worker{
		Recounter: roster.NewService(st, occupancy.New(st, nil), roster.WithLogger(log.Named("roster"))),
		Summaries: attendance.NewService(st,
			attendance.WithCache(c),
			attendance.WithLogger(log.Named("attendance")),
			attendance.WithLocation(cfg.Location()),
		),
		Log: log.Named("worker"),
	}
	if err := w.Run(ctx, q); err != nil {
		log.Fatal("worker failed", zap.Error(err))
	}
}
