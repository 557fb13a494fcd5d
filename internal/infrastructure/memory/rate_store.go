package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
)

var (
	_ application.RateStore = (*RateStore)(nil)
	_ application.Expirer   = (*RateStore)(nil)
)

// RateStore keeps every series sorted by timestamp ascending.
type RateStore struct {
	mu     sync.RWMutex
	series map[string][]domain.RateRecord
}

func NewRateStore() *RateStore {
	return &RateStore{series: map[string][]domain.RateRecord{}}
}

func (s *RateStore) Append(_ context.Context, rec domain.RateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(rec)
}

func (s *RateStore) insert(rec domain.RateRecord) error {
	rows := s.series[rec.CurrencyPair]
	i := sort.Search(len(rows), func(i int) bool { return !rows[i].Timestamp.Before(rec.Timestamp) })
	if i < len(rows) && rows[i].Timestamp.Equal(rec.Timestamp) {
		return domain.ErrConflict
	}
	rows = append(rows, domain.RateRecord{})
	copy(rows[i+1:], rows[i:])
	rows[i] = rec
	s.series[rec.CurrencyPair] = rows
	return nil
}

func (s *RateStore) PutDailyReferenceIfAbsent(_ context.Context, rec domain.RateRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.series[rec.CurrencyPair]) > 0 {
		return false, nil
	}
	if err := s.insert(rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RateStore) Latest(_ context.Context, pair domain.Pair) (domain.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.series[string(pair)]
	if len(rows) == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (s *RateStore) AtOrBefore(_ context.Context, pair domain.Pair, at time.Time) (domain.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.series[string(pair)]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Timestamp.After(at) })
	if i == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	return rows[i-1], nil
}

func (s *RateStore) ByDerivedKey(_ context.Context, key string) (domain.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.series[key]
	if len(rows) == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	return rows[0], nil
}

func (s *RateStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rows := range s.series {
		kept := rows[:0]
		for _, r := range rows {
			if !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now) {
				n++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.series, key)
			continue
		}
		s.series[key] = kept
	}
	return n, nil
}
