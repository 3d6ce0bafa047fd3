package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/config"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	appHTTP "github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/messaging"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/payroll-tax-engine/internal/service/attendance"
	payoutService "github.com/cmlabs-hris/payroll-tax-engine/internal/service/payout"
	salaryService "github.com/cmlabs-hris/payroll-tax-engine/internal/service/salary"
	taxationService "github.com/cmlabs-hris/payroll-tax-engine/internal/service/taxation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := appHTTP.NewLogger(os.Stdout, "payroll-tax-engine", cfg.App.Env, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var locker lock.Locker = lock.NoopLocker{}
	if cfg.RedisEnabled() {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.MaxRetries)
		if err != nil {
			logger.Error("Error connecting to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Redis.LockPrefix)
	} else {
		logger.Warn("REDIS_ADDR not set, tax recalculation locks are process-local only")
	}

	transactor := postgresql.NewTransactor(db)
	taxationRepo := postgresql.NewTaxationRepository(db)
	salaryRepo := postgresql.NewSalaryRepository(db)
	payoutRepo := postgresql.NewPayoutRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	outboxRepo := postgresql.NewOutboxRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	taxationSvc := taxationService.NewTaxationService(
		transactor,
		taxationRepo,
		salaryRepo,
		outboxRepo,
		locker,
		taxationService.Options{
			Retries: cfg.Payroll.CalcRetries,
			LockTTL: cfg.Payroll.LockTTL,
			Logger:  logger.With("component", "taxation"),
		},
	)
	salarySvc := salaryService.NewSalaryService(transactor, salaryRepo, taxationSvc, logger.With("component", "salary"))
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo)
	payoutSvc := payoutService.NewPayoutService(
		transactor,
		payoutRepo,
		salaryRepo,
		attendanceSvc,
		taxationSvc,
		payout.OvertimePolicy{
			Enabled:     cfg.Payroll.OvertimeEnabled,
			Multiplier:  cfg.Payroll.OvertimeMultiplier,
			HoursPerDay: cfg.Payroll.HoursPerDay,
		},
		logger.With("component", "payout"),
	)

	scheduler := cron.NewScheduler(logger)
	if cfg.KafkaEnabled() {
		writer := messaging.NewKafkaWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		relay := messaging.NewRelay(outboxRepo, messaging.NewKafkaPublisher(writer), cfg.Kafka.RelayBatchSize, logger)
		scheduler.AddJob(cron.Job{
			Name:     "outbox-relay",
			Interval: cfg.Kafka.RelayInterval,
			Timeout:  30 * time.Second,
			Fn:       relay.Job,
		})
	} else {
		logger.Warn("KAFKA_BROKERS not set, taxation events stay in the outbox")
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{AllowedOrigins: cfg.App.AllowedOrigins, LogLevel: level},
		logger,
		JWTService,
		appHTTP.NewAuthHandler(JWTService),
		appHTTP.NewTaxationHandler(taxationSvc),
		appHTTP.NewSalaryHandler(salarySvc),
		appHTTP.NewPayoutHandler(payoutSvc),
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewRetirementHandler(),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
