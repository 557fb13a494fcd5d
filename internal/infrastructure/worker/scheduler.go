package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
	"fx-margin-guard/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

var _ application.Worker = (*Scheduler)(nil)

// Acquirer is satisfied by application.RateAcquisitionService.
type Acquirer interface {
	Acquire(ctx context.Context, pair domain.Pair) (domain.RateRecord, error)
}

// Sweep names an Expirer for logs and metrics.
type Sweep struct {
	Store   string
	Expirer application.Expirer
}

// Scheduler runs one acquisition per pair every Every, followed by expiry
// sweeps for stores without native TTL.
type Scheduler struct {
	Acquirer Acquirer
	Pairs    []domain.Pair
	Guard    application.SlotGuard
	Sweeps   []Sweep

	Every   time.Duration
	Timeout time.Duration
	Now     func() time.Time
	Log     *zap.Logger
}

func (w *Scheduler) defaults() {
	if w.Log == nil {
		w.Log = zap.NewNop()
	}
	if w.Every <= 0 {
		w.Every = 30 * time.Minute
	}
	if w.Timeout <= 0 {
		w.Timeout = 30 * time.Second
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	if w.Guard == nil {
		w.Guard = application.NoopGuard{}
	}
}

// Start runs immediately, then on every tick until ctx is canceled.
func (w *Scheduler) Start(ctx context.Context) {
	w.defaults()
	t := time.NewTicker(w.Every)
	defer t.Stop()

	w.Log.Info("scheduler_started", zap.Duration("every", w.Every), zap.Int("pairs", len(w.Pairs)))
	_ = w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("scheduler_stopped")
			return
		case <-t.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// RunOnce acquires every pair whose slot this replica wins and then sweeps
// expired rows. Failures are logged and joined into the returned error.
func (w *Scheduler) RunOnce(ctx context.Context) error {
	w.defaults()
	now := w.Now().UTC()
	var errs []error
	for _, pair := range w.Pairs {
		if err := w.acquire(ctx, pair, now); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range w.Sweeps {
		n, err := s.Expirer.PurgeExpired(ctx, now)
		if err != nil {
			w.Log.Warn("sweep_failed", zap.String("store", s.Store), zap.Error(err))
			errs = append(errs, fmt.Errorf("sweep %s: %w", s.Store, err))
			continue
		}
		metrics.ExpiredRowsDeleted.WithLabelValues(s.Store).Add(float64(n))
		if n > 0 {
			w.Log.Info("sweep_done", zap.String("store", s.Store), zap.Int64("deleted", n))
		}
	}
	return errors.Join(errs...)
}

// SlotKey identifies the scheduling window containing now.
func SlotKey(pair domain.Pair, now time.Time, every time.Duration) string {
	return fmt.Sprintf("fxguard:acquire:%s:%d", pair, now.Truncate(every).Unix())
}

func (w *Scheduler) acquire(ctx context.Context, pair domain.Pair, now time.Time) error {
	log := w.Log.With(zap.String("pair", string(pair)))
	key := SlotKey(pair, now, w.Every)
	ok, err := w.Guard.TryReserve(ctx, key)
	switch {
	case err != nil:
		log.Warn("slot_guard_unavailable", zap.String("slot", key), zap.Error(err))
	case !ok:
		log.Info("slot_taken", zap.String("slot", key))
		metrics.AcquisitionsTotal.WithLabelValues(string(pair), "skipped", "").Inc()
		return nil
	}

	c, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	start := time.Now()
	rec, err := w.Acquirer.Acquire(c, pair)
	metrics.AcquisitionDuration.WithLabelValues(string(pair)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AcquisitionsTotal.WithLabelValues(string(pair), "failed", "").Inc()
		log.Error("acquisition_failed", zap.Error(err))
		return fmt.Errorf("acquire %s: %w", pair, err)
	}
	metrics.AcquisitionsTotal.WithLabelValues(string(pair), "stored", rec.Source).Inc()
	metrics.LatestRate.WithLabelValues(string(pair)).Set(rec.Rate)
	return nil
}
