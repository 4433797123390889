package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/handler"
	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/repository"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/internal/view"
	"github.com/unicesmag/labcontrol/pkg/cache"
	"github.com/unicesmag/labcontrol/pkg/config"
	"github.com/unicesmag/labcontrol/pkg/database"
	"github.com/unicesmag/labcontrol/pkg/logger"
	"github.com/unicesmag/labcontrol/pkg/mailer"
	reqidmiddleware "github.com/unicesmag/labcontrol/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, using in-process cache", zap.Error(err))
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Cache.TTL)
	case redisClient != nil:
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	default:
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Cache.TTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	recordRepo := repository.NewLabRecordRepository(db)
	userRepo := repository.NewUserRepository(db)

	if cfg.Mail.Username == "" {
		logr.Warn("EMAIL_USER is not set, incident notifications will fail")
	}
	notifier := service.NewNotificationService(mailer.NewSMTPMailer(cfg.Mail), metricsSvc, logr)

	recordSvc := service.NewRecordService(recordRepo, notifier, cacheSvc, metricsSvc, service.NewValidator(), logr)
	reportSvc := service.NewReportService(recordRepo, cacheSvc, metricsSvc, logr)
	authSvc := service.NewAuthService(userRepo, logr)
	userSvc := service.NewUserService(userRepo, logr)

	renderer, err := view.New(cfg.TemplatesDir)
	if err != nil {
		logr.Fatal("failed to load templates", zap.Error(err))
	}
	sessions := middleware.NewSessionManager(middleware.NewCookieStore(cfg.Session), cfg.Session.Name, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Metrics(metricsSvc, cfg.Metrics.Path))

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handler.Register(r, handler.Handlers{
		Records:     handler.NewRecordHandler(recordSvc, reportSvc, sessions, renderer, logr),
		Auth:        handler.NewAuthHandler(authSvc, sessions, renderer),
		Users:       handler.NewUserHandler(userSvc, sessions, renderer),
		Reports:     handler.NewReportHandler(reportSvc, sessions, renderer),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db),
		Sessions:    sessions,
		MetricsPath: metricsPath,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logr.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
