package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fx-margin-guard/internal/domain"

	"github.com/stretchr/testify/require"
)

type stubAcquirer struct {
	mu    sync.Mutex
	calls []domain.Pair
	err   error
}

func (s *stubAcquirer) Acquire(ctx context.Context, pair domain.Pair) (domain.RateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, pair)
	if _, ok := ctx.Deadline(); !ok {
		return domain.RateRecord{}, errors.New("no deadline")
	}
	if s.err != nil {
		return domain.RateRecord{}, s.err
	}
	return domain.RateRecord{CurrencyPair: string(pair), Rate: 83.1, Source: "fake"}, nil
}

func (s *stubAcquirer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memGuard struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (g *memGuard) TryReserve(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

type stubExpirer struct {
	n   int64
	err error
	at  time.Time
}

func (e *stubExpirer) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	e.at = now
	return e.n, e.err
}

var now = time.Date(2025, 6, 1, 10, 7, 0, 0, time.UTC)

func TestScheduler_RunOnceAcquiresAndSweeps(t *testing.T) {
	acq := &stubAcquirer{}
	exp := &stubExpirer{n: 3}
	w := &Scheduler{
		Acquirer: acq,
		Pairs:    []domain.Pair{domain.DefaultPair},
		Sweeps:   []Sweep{{Store: "rates", Expirer: exp}},
		Now:      func() time.Time { return now },
	}
	require.NoError(t, w.RunOnce(context.Background()))
	require.Equal(t, []domain.Pair{domain.DefaultPair}, acq.calls)
	require.Equal(t, now, exp.at)
}

func TestScheduler_GuardSkipsTakenSlot(t *testing.T) {
	acq := &stubAcquirer{}
	guard := &memGuard{}
	mk := func() *Scheduler {
		return &Scheduler{
			Acquirer: acq,
			Pairs:    []domain.Pair{domain.DefaultPair},
			Guard:    guard,
			Every:    30 * time.Minute,
			Now:      func() time.Time { return now },
		}
	}
	// Two replicas in the same window: only one acquires.
	require.NoError(t, mk().RunOnce(context.Background()))
	require.NoError(t, mk().RunOnce(context.Background()))
	require.Equal(t, 1, acq.count())

	require.True(t, guard.keys[SlotKey(domain.DefaultPair, now, 30*time.Minute)])
	require.Equal(t, "fxguard:acquire:USD-INR:1748772000", SlotKey(domain.DefaultPair, now, 30*time.Minute))
}

func TestScheduler_GuardErrorStillAcquires(t *testing.T) {
	acq := &stubAcquirer{}
	w := &Scheduler{
		Acquirer: acq,
		Pairs:    []domain.Pair{domain.DefaultPair},
		Guard:    &memGuard{err: errors.New("redis down")},
	}
	require.NoError(t, w.RunOnce(context.Background()))
	require.Equal(t, 1, acq.count())
}

func TestScheduler_FailuresAreJoined(t *testing.T) {
	acq := &stubAcquirer{err: domain.ErrProvider}
	exp := &stubExpirer{err: errors.New("db gone")}
	w := &Scheduler{
		Acquirer: acq,
		Pairs:    []domain.Pair{domain.DefaultPair, "EUR-INR"},
		Sweeps:   []Sweep{{Store: "orders", Expirer: exp}},
	}
	err := w.RunOnce(context.Background())
	require.ErrorIs(t, err, domain.ErrProvider)
	require.ErrorContains(t, err, "sweep orders")
	require.Equal(t, 2, acq.count())
}

func TestScheduler_StartStopsOnCancel(t *testing.T) {
	acq := &stubAcquirer{}
	w := &Scheduler{
		Acquirer: acq,
		Pairs:    []domain.Pair{domain.DefaultPair},
		Every:    10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return acq.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
