package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// Notifier sends a reminder about one pending request to its current approvers
type Notifier interface {
	Remind(ctx context.Context, req *entity.Request) (int, error)
}

// ReminderConfig controls the pending-request reminder worker
type ReminderConfig struct {
	// Interval between scans
	Interval time.Duration
	// StaleAfter is how long a request may sit at one level before its
	// approvers are reminded, and how long until they are reminded again
	StaleAfter time.Duration
	// BatchSize caps reminders per scan; zero means no cap
	BatchSize int
}

// ReminderWorker periodically nudges approvers about requests that have been
// waiting at their level for longer than StaleAfter.
type ReminderWorker struct {
	requests port.RequestRepository
	notifier Notifier
	cfg      ReminderConfig
	logger   *zap.Logger
	now      func() time.Time

	// request id + level -> reminded; entries expire after StaleAfter
	sent *cache.Cache

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// ReminderOption configures a ReminderWorker
type ReminderOption func(*ReminderWorker)

// WithReminderClock overrides the clock used to decide staleness
func WithReminderClock(now func() time.Time) ReminderOption {
	return func(w *ReminderWorker) {
		w.now = now
	}
}

// NewReminderWorker creates a reminder worker
func NewReminderWorker(requests port.RequestRepository, notifier Notifier, cfg ReminderConfig, logger *zap.Logger, opts ...ReminderOption) *ReminderWorker {
	w := &ReminderWorker{
		requests: requests,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sent:     cache.New(cfg.StaleAfter, 2*cfg.StaleAfter),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "pending-reminder"
}

// Start scans once immediately and then every Interval until Stop or ctx ends
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return fmt.Errorf("reminder worker is already running")
	}
	if w.cfg.Interval <= 0 || w.cfg.StaleAfter <= 0 {
		return fmt.Errorf("reminder worker needs a positive interval and stale_after")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	w.logger.Info("Reminder worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("stale_after", w.cfg.StaleAfter),
		zap.Int("batch_size", w.cfg.BatchSize))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done == nil {
		return nil
	}
	w.cancel()
	<-w.done
	w.done = nil

	w.logger.Info("Reminder worker stopped")
	return nil
}

func (w *ReminderWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		w.scan(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *ReminderWorker) scan(ctx context.Context) {
	n, err := w.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("Reminder scan failed", zap.Error(err), zap.Int("reminded", n))
		return
	}
	if n > 0 {
		w.logger.Info("Pending reminders sent", zap.Int("requests", n))
	}
}

// RunOnce performs a single scan and returns how many requests were reminded.
// Requests that have waited longest at their current level go first, so a
// batch cap never starves them.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.requests.List(ctx, port.RequestQuery{Status: entity.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending requests: %w", err)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].UpdatedAt.Before(pending[j].UpdatedAt)
	})

	cutoff := w.now().Add(-w.cfg.StaleAfter)
	reminded := 0
	var errs []error

	for _, req := range pending {
		if err := ctx.Err(); err != nil {
			return reminded, err
		}
		if w.cfg.BatchSize > 0 && reminded >= w.cfg.BatchSize {
			break
		}
		if req.IsFinalized() || req.UpdatedAt.After(cutoff) {
			continue
		}

		key := req.ID + ":" + req.CurrentLevel.String()
		if _, found := w.sent.Get(key); found {
			continue
		}

		if _, err := w.notifier.Remind(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", req.ID, err))
			continue
		}
		w.sent.SetDefault(key, struct{}{})
		reminded++
	}

	return reminded, errors.Join(errs...)
}
