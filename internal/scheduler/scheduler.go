package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// TokenPurger removes expired remember-me tokens.
type TokenPurger interface {
	PurgeExpiredRememberTokens(ctx context.Context, now time.Time) (int64, error)
}

// StockScanner lists items at or below their reorder threshold.
type StockScanner interface {
	ListLowStock(ctx context.Context) ([]types.InventoryItem, error)
}

// StockAlerter receives each low stock item found by the sweep.
type StockAlerter interface {
	LowStock(ctx context.Context, item *types.InventoryItem)
}

// Scheduler runs the background maintenance jobs: purging expired
// remember-me tokens and sweeping inventory for low stock.
type Scheduler struct {
	logger  *slog.Logger
	cron    *cron.Cron
	cfg     config.SchedulerConfig
	purger  TokenPurger
	scanner StockScanner
	alerter StockAlerter
}

func New(cfg config.SchedulerConfig, purger TokenPurger, scanner StockScanner, alerter StockAlerter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		cron:    cron.New(),
		cfg:     cfg,
		purger:  purger,
		scanner: scanner,
		alerter: alerter,
	}
}

// Start registers the configured jobs and starts the cron loop. A bad
// cron spec is a configuration error and is returned, not skipped.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled by configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.TokenPurgeSpec, s.purgeTokens); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.LowStockSweepSpec, s.sweepLowStock); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("token_purge", s.cfg.TokenPurgeSpec),
		slog.String("low_stock_sweep", s.cfg.LowStockSweepSpec))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) purgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := s.purger.PurgeExpiredRememberTokens(ctx, time.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "remember token purge failed", slog.Any("error", err))
		return
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "purged expired remember tokens", slog.Int64("count", purged))
	}
}

func (s *Scheduler) sweepLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	items, err := s.scanner.ListLowStock(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "low stock sweep failed", slog.Any("error", err))
		return
	}
	for i := range items {
		s.alerter.LowStock(ctx, &items[i])
	}
	if len(items) > 0 {
		s.logger.InfoContext(ctx, "low stock sweep finished", slog.Int("items", len(items)))
	}
}
