package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/issue-tracker/internal/auth"
	"github.com/Dan9191/issue-tracker/internal/config"
	"github.com/Dan9191/issue-tracker/internal/handler"
	"github.com/Dan9191/issue-tracker/internal/integrations/events"
	"github.com/Dan9191/issue-tracker/internal/jobs"
	"github.com/Dan9191/issue-tracker/internal/middleware"
	"github.com/Dan9191/issue-tracker/internal/repository"
	"github.com/Dan9191/issue-tracker/internal/service"
	"github.com/Dan9191/issue-tracker/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx := context.Background()

	// Initialize storage
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStore()

	// Token revocation
	var revoked auth.Blacklist
	var memRevoked *auth.MemoryBlacklist
	if cfg.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := auth.DialRedis(dialCtx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		revoked = auth.NewRedisBlacklist(rdb)
		logger.Infof("Token revocations stored in redis at %s", cfg.RedisAddr)
	} else {
		memRevoked = auth.NewMemoryBlacklist()
		revoked = memRevoked
	}

	// Issue events
	publisher, err := events.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize event publisher: %v", err)
	}
	defer publisher.Close()

	// Initialize layers
	opts := []service.Option{
		service.WithEvents(publisher),
		service.WithStaleAfter(cfg.StaleAfter),
	}
	if cfg.EmailEnabled() {
		opts = append(opts, service.WithNotifier(email.NewSender(cfg, logger)))
	} else {
		logger.Info("SMTP_HOST not set, email notifications disabled")
	}
	svc := service.NewService(store, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL), revoked, logger, opts...)
	limiter := middleware.NewIPRateLimiter(cfg.LoginRatePerSec, cfg.LoginBurst)
	if err := limiter.TrustProxies(cfg.TrustedProxies); err != nil {
		logger.Fatalf("Failed to configure rate limiter: %v", err)
	}

	// Background jobs
	scheduler := jobs.NewScheduler(logger)
	mustSchedule(logger, scheduler, "rate-limiter-cleanup", "@every 10m", func(context.Context) error {
		if n := limiter.Cleanup(30 * time.Minute); n > 0 {
			logger.Debugf("Dropped %d idle rate limiter entries", n)
		}
		return nil
	})
	if memRevoked != nil {
		mustSchedule(logger, scheduler, "revocation-purge", "@every 15m", func(context.Context) error {
			if n := memRevoked.Purge(); n > 0 {
				logger.Debugf("Purged %d expired token revocations", n)
			}
			return nil
		})
	}
	if cfg.EmailEnabled() {
		mustSchedule(logger, scheduler, "stale-issue-reminders", cfg.StaleReminderSchedule, func(ctx context.Context) error {
			_, err := svc.RemindStaleIssues(ctx)
			return err
		})
	}
	scheduler.Start()

	// Setup router
	router := handler.NewRouter(svc, logger, handler.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: limiter,
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	scheduler.Stop(shutCtx)
}

// openStore connects to Postgres through GORM or falls back to memory when configured
func openStore(cfg *config.Config, logger *logrus.Logger) (service.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	repo := repository.NewRepository(gdb)
	if err := repo.Migrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Connected to postgres")
	return repo, func() { db.Close() }, nil
}

func mustSchedule(logger *logrus.Logger, s *jobs.Scheduler, name, spec string, job jobs.Job) {
	if err := s.Add(name, spec, job); err != nil {
		logger.Fatalf("Failed to schedule job: %v", err)
	}
}
