package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
)

var (
	_ application.OrderImpactStore = (*OrderImpactStore)(nil)
	_ application.Expirer          = (*OrderImpactStore)(nil)
)

type orderKey struct{ orderID, storeID string }

type OrderImpactStore struct {
	mu   sync.RWMutex
	recs map[orderKey]domain.OrderImpactRecord
}

func NewOrderImpactStore() *OrderImpactStore {
	return &OrderImpactStore{recs: map[orderKey]domain.OrderImpactRecord{}}
}

func (s *OrderImpactStore) Put(_ context.Context, rec domain.OrderImpactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[orderKey{rec.OrderID, rec.StoreID}] = rec
	return nil
}

// ListByStore snapshots matching records when iteration starts.
func (s *OrderImpactStore) ListByStore(ctx context.Context, storeID string, r application.DateRange) iter.Seq2[domain.OrderImpactRecord, error] {
	return func(yield func(domain.OrderImpactRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.OrderImpactRecord{}, err)
			return
		}
		s.mu.RLock()
		var out []domain.OrderImpactRecord
		for k, rec := range s.recs {
			if k.storeID == storeID && r.Contains(rec.OrderDate) {
				out = append(out, rec)
			}
		}
		s.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool {
			if out[i].OrderDate.Equal(out[j].OrderDate) {
				return out[i].OrderID > out[j].OrderID
			}
			return out[i].OrderDate.After(out[j].OrderDate)
		})
		for _, rec := range out {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *OrderImpactStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.recs {
		if !rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(now) {
			delete(s.recs, k)
			n++
		}
	}
	return n, nil
}
