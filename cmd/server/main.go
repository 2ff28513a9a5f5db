package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magaza-backend/internal/config"
	"magaza-backend/internal/database"
	"magaza-backend/internal/jobs"
	"magaza-backend/internal/logger"
	"magaza-backend/internal/scheduler"
	"magaza-backend/internal/server"
	"magaza-backend/internal/stock"
	"magaza-backend/internal/throttle"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// zamanlanmış tarama çıktısı ayrıca dosyaya yazılır
	schedLogger := logger.Must(logger.New(cfg.Stock.ScanLogFile)).Named("scheduler")
	defer func() { _ = schedLogger.Sync() }()

	if cfg.UsesDefaultDSN() {
		baseLogger.Warn("DATABASE_DSN not set, using local development database")
	}
	db, err := database.Init(cfg.DatabaseDSN)
	if err != nil {
		baseLogger.Fatal("failed to init database", zap.Error(err))
	}

	// Redis yoksa tarama kilidi veritabanında tutulur
	var locker throttle.Locker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		locker = throttle.NewRedisLocker(client, "magaza:")
		baseLogger.Info("scan throttle using redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		locker = throttle.NewDBLocker(db)
		baseLogger.Info("scan throttle using database")
	}
	gate := throttle.New(locker, throttle.DefaultKey, cfg.Stock.ScanThrottleTTL, logger.Named(baseLogger, "throttle"))

	ledger := stock.NewLedger(db, logger.Named(baseLogger, "svc.stock"), stock.AllowNegativeStock(cfg.Stock.AllowNegativeStock))
	scanner := stock.NewScanner(db, cfg.Stock.LowStockThreshold, logger.Named(baseLogger, "svc.stock"))

	runner := jobs.NewRunner(cfg.Jobs.Workers, cfg.Jobs.QueueSize, logger.Named(baseLogger, "jobs"))
	runner.Register(stock.ScanJobName, func(ctx context.Context) error {
		res, err := scanner.Run(ctx)
		if err != nil {
			return err
		}
		baseLogger.Info("low stock scan done", zap.Int("notified", res.Notified), zap.Int("recovered", res.Recovered))
		return nil
	})
	runner.Start(context.Background())
	defer runner.Stop()

	sched := scheduler.NewScheduler(cfg.Stock.ScanSchedule, stock.ScanJobName, runner, schedLogger)
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := server.New(cfg, server.Deps{
		Ledger: ledger,
		Gate:   gate,
		Queue:  runner,
		Logger: logger.Named(baseLogger, "http"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			baseLogger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
