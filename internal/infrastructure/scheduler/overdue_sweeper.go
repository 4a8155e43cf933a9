package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared"
)

// OverdueSweeperConfig holds configuration for the overdue invoice sweep
type OverdueSweeperConfig struct {
	// SweepHour and SweepMinute set the daily sweep time (24h clock)
	SweepHour   int
	SweepMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// BatchSize limits how many invoices are loaded per page
	BatchSize int
}

// DefaultOverdueSweeperConfig returns default sweeper configuration
func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{
		SweepHour:     2, // 2am
		SweepMinute:   0,
		CheckInterval: time.Minute,
		BatchSize:     200,
	}
}

// OverdueSweeper scans for invoices past their due date that are not fully
// paid and writes a daily report of them to the log.
type OverdueSweeper struct {
	config      OverdueSweeperConfig
	invoiceRepo billing.InvoiceRepository
	logger      *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(
	config OverdueSweeperConfig,
	invoiceRepo billing.InvoiceRepository,
	logger *zap.Logger,
) *OverdueSweeper {
	return &OverdueSweeper{
		config:      config,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// Start starts the sweep loop
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Overdue sweeper started",
		zap.Int("sweep_hour", s.config.SweepHour),
		zap.Int("sweep_minute", s.config.SweepMinute),
		zap.Duration("check_interval", s.config.CheckInterval),
	)

	return nil
}

// Stop stops the sweep loop
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to sweep
func (s *OverdueSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndSweep(ctx)
		}
	}
}

// checkAndSweep sweeps once per day at the configured time
func (s *OverdueSweeper) checkAndSweep(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already ran today
	s.mu.Lock()
	if s.lastRunDate == currentDate {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if now.Hour() != s.config.SweepHour || now.Minute() != s.config.SweepMinute {
		return
	}

	s.mu.Lock()
	s.lastRunDate = currentDate
	s.mu.Unlock()

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
	}
}

// Sweep runs one scan over all overdue invoices. It can also be called
// directly to trigger a sweep outside the daily schedule.
func (s *OverdueSweeper) Sweep(ctx context.Context) error {
	now := time.Now()
	filter := billing.InvoiceFilter{
		Filter: shared.Filter{
			Take:     s.config.BatchSize,
			OrderBy:  "due_date",
			OrderDir: "asc",
		},
		DueBefore: &now,
	}

	overdue := 0
	for {
		invoices, err := s.invoiceRepo.FindAll(ctx, filter)
		if err != nil {
			return err
		}

		for i := range invoices {
			inv := &invoices[i]
			s.logger.Warn("invoice overdue",
				zap.String("invoice_id", inv.ID.String()),
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Time("due_date", inv.DueDate),
				zap.String("payment_status", string(inv.PaymentStatus)),
				zap.String("customer_email", inv.Customer.Email),
			)
		}
		overdue += len(invoices)

		if len(invoices) < s.config.BatchSize {
			break
		}
		filter.Skip += s.config.BatchSize
	}

	s.logger.Info("Overdue sweep completed",
		zap.Int("overdue_invoices", overdue),
		zap.Time("swept_at", now),
	)
	return nil
}
