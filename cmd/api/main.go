package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"hostel/internal/attendance"
	"hostel/internal/auth"
	"hostel/internal/cache"
	"hostel/internal/cloudinary"
	"hostel/internal/config"
	"hostel/internal/handler"
	"hostel/internal/httpmiddleware"
	"hostel/internal/jobs"
	"hostel/internal/logging"
	"hostel/internal/metrics"
	"hostel/internal/model"
	"hostel/internal/occupancy"
	"hostel/internal/queue"
	"hostel/internal/report"
	"hostel/internal/roster"
	"hostel/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StoreBackend, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		redisClient *store.Redis
		client      *redis.Client
	)
	if cfg.CacheBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		client = redisClient.Client
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	c, err := cache.New(cfg.CacheBackend, client, "hostel:", cfg.CacheTTL)
	if err != nil {
		return err
	}
	q, err := queue.New(cfg.QueueBackend, client, cfg.QueueKey)
	if err != nil {
		return err
	}

	rosterOpts := []roster.Option{roster.WithPublisher(q), roster.WithLogger(log.Named("roster"))}
	if cfg.Cloudinary() {
		cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		rosterOpts = append(rosterOpts, roster.WithPhotos(cdn))
		log.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		log.Info("cloudinary not configured, photo uploads disabled")
	}
	rost := roster.NewService(st, occupancy.New(st, m), rosterOpts...)
	att := attendance.NewService(st,
		attendance.WithCache(c),
		attendance.WithPublisher(q),
		attendance.WithMetrics(m),
		attendance.WithLogger(log.Named("attendance")),
		attendance.WithLocation(cfg.Location()),
	)

	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, admin sign-in disabled")
	}
	dir, err := auth.NewDirectory(bcrypt.DefaultCost,
		auth.Credentials{Username: cfg.AdminUsername, Password: cfg.AdminPassword, Role: model.RoleAdmin},
		auth.Credentials{Username: cfg.StaffUsername, Password: cfg.StaffPassword, Role: model.RoleStaff},
	)
	if err != nil {
		return err
	}

	// An in-process queue is only visible to this process, so consume it here.
	if cfg.QueueBackend == "memory" {
		w := &jobs.Worker{Recounter: rost, Summaries: att, Metrics: m, Log: log.Named("worker")}
		go func() {
			if err := w.Run(ctx, q); err != nil {
				log.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	}

	checks := map[string]handler.Check{"store": st.Ping}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}
	h := &handler.Handler{
		Roster:     rost,
		Attendance: att,
		Reports:    report.Generator{Store: st},
		Auth: &auth.Authenticator{
			Directory:  dir,
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		Limiter: httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Checks:  checks,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:     log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(log.Named("http"), "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics(m))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Timeout(cfg.RequestTimeout))
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}
