package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kreditlab/loan-engine/internal/config"
	"github.com/kreditlab/loan-engine/internal/repository"
	"github.com/kreditlab/loan-engine/pkg/logger"
)

const delinquentKeyPrefix = "loan:delinquent:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zapLogger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.OverdueScanSpec, func() {
		scanOverdueLoans(loanRepo, redisClient, cfg, zapLogger)
	})
	if err != nil {
		zapLogger.Fatal("failed to schedule overdue scan", zap.Error(err))
	}

	c.Start()
	zapLogger.Info("scheduler started", zap.String("spec", cfg.Scheduler.OverdueScanSpec))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down scheduler")
	<-c.Stop().Done()
	zapLogger.Info("scheduler stopped")
}

// scanOverdueLoans flags loans with overdue installments in redis so other
// services can consult delinquency cheaply. Installment status itself is
// only ever mutated by payment allocation.
func scanOverdueLoans(loanRepo repository.LoanRepository, redisClient *redis.Client, cfg *config.Config, zapLogger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	overdue, err := loanRepo.GetOverdueInstallments(ctx, time.Now())
	if err != nil {
		zapLogger.Error("overdue scan failed", zap.Error(err))
		return
	}

	byLoan := make(map[uuid.UUID]int)
	for _, installment := range overdue {
		byLoan[installment.LoanID]++
	}

	for loanID, count := range byLoan {
		key := delinquentKeyPrefix + loanID.String()
		if err := redisClient.Set(ctx, key, count, cfg.Business.DelinquentFlagTTL).Err(); err != nil {
			zapLogger.Error("failed to flag delinquent loan",
				zap.String("loan_id", loanID.String()), zap.Error(err))
		}
	}

	zapLogger.Info("overdue scan finished",
		zap.Int("overdue_installments", len(overdue)),
		zap.Int("delinquent_loans", len(byLoan)),
	)
}
