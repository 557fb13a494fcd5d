package application

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"
	"time"

	"fx-margin-guard/internal/domain"
)

var ErrRepo = errors.New("repo error")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeRateStore struct {
	mu      sync.Mutex
	rows    map[string][]domain.RateRecord
	err     error
	dailyEr error
	reads   int
}

func (f *fakeRateStore) Append(_ context.Context, rec domain.RateRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = map[string][]domain.RateRecord{}
	}
	for _, r := range f.rows[rec.CurrencyPair] {
		if r.Timestamp.Equal(rec.Timestamp) {
			return domain.ErrConflict
		}
	}
	f.rows[rec.CurrencyPair] = append(f.rows[rec.CurrencyPair], rec)
	return nil
}

func (f *fakeRateStore) PutDailyReferenceIfAbsent(_ context.Context, rec domain.RateRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dailyEr != nil {
		return false, f.dailyEr
	}
	if f.rows == nil {
		f.rows = map[string][]domain.RateRecord{}
	}
	if len(f.rows[rec.CurrencyPair]) > 0 {
		return false, nil
	}
	f.rows[rec.CurrencyPair] = []domain.RateRecord{rec}
	return true, nil
}

func (f *fakeRateStore) sorted(key string) []domain.RateRecord {
	rows := append([]domain.RateRecord(nil), f.rows[key]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	return rows
}

func (f *fakeRateStore) Latest(_ context.Context, pair domain.Pair) (domain.RateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return domain.RateRecord{}, f.err
	}
	rows := f.sorted(string(pair))
	if len(rows) == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (f *fakeRateStore) AtOrBefore(_ context.Context, pair domain.Pair, at time.Time) (domain.RateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return domain.RateRecord{}, f.err
	}
	rows := f.sorted(string(pair))
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].Timestamp.After(at) {
			return rows[i], nil
		}
	}
	return domain.RateRecord{}, domain.ErrNotFound
}

func (f *fakeRateStore) ByDerivedKey(_ context.Context, key string) (domain.RateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return domain.RateRecord{}, f.err
	}
	rows := f.rows[key]
	if len(rows) == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	return rows[0], nil
}

func (f *fakeRateStore) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[key])
}

type fakeOrderStore struct {
	mu   sync.Mutex
	recs map[[2]string]domain.OrderImpactRecord
	err  error
}

func (f *fakeOrderStore) Put(_ context.Context, rec domain.OrderImpactRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.recs == nil {
		f.recs = map[[2]string]domain.OrderImpactRecord{}
	}
	f.recs[[2]string{rec.OrderID, rec.StoreID}] = rec
	return nil
}

func (f *fakeOrderStore) ListByStore(_ context.Context, storeID string, r DateRange) iter.Seq2[domain.OrderImpactRecord, error] {
	return func(yield func(domain.OrderImpactRecord, error) bool) {
		f.mu.Lock()
		var out []domain.OrderImpactRecord
		for _, rec := range f.recs {
			if rec.StoreID == storeID && r.Contains(rec.OrderDate) {
				out = append(out, rec)
			}
		}
		f.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
		for _, rec := range out {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

type fakeRateProvider struct {
	name  string
	rate  float64
	err   error
	calls int
}

func (f *fakeRateProvider) Name() string { return f.name }

func (f *fakeRateProvider) Quote(_ context.Context, pair domain.Pair) (domain.Quote, error) {
	f.calls++
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return domain.Quote{Pair: pair, Rate: f.rate, Source: f.name}, nil
}

// recordingUoW restores the store snapshot when fn fails.
type recordingUoW struct {
	store *fakeRateStore
}

func (u recordingUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.store.mu.Lock()
	snapshot := map[string][]domain.RateRecord{}
	for k, v := range u.store.rows {
		snapshot[k] = append([]domain.RateRecord(nil), v...)
	}
	u.store.mu.Unlock()
	if err := fn(ctx); err != nil {
		u.store.mu.Lock()
		u.store.rows = snapshot
		u.store.mu.Unlock()
		return err
	}
	return nil
}
