package application

import (
	"context"
	"iter"
	"time"

	"fx-margin-guard/internal/domain"
)

// RateStore is the append-only rate time series. Lookups that find nothing
// return domain.ErrNotFound.
type RateStore interface {
	// Append fails with domain.ErrConflict when (pair, timestamp) already exists.
	Append(ctx context.Context, rec domain.RateRecord) error
	// PutDailyReferenceIfAbsent writes rec only when its derived key is still empty.
	PutDailyReferenceIfAbsent(ctx context.Context, rec domain.RateRecord) (bool, error)
	Latest(ctx context.Context, pair domain.Pair) (domain.RateRecord, error)
	// AtOrBefore returns the most recent record acquired no later than at.
	AtOrBefore(ctx context.Context, pair domain.Pair, at time.Time) (domain.RateRecord, error)
	ByDerivedKey(ctx context.Context, key string) (domain.RateRecord, error)
}

// DateRange bounds are inclusive; a zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

type OrderImpactStore interface {
	// Put upserts by (OrderID, StoreID).
	Put(ctx context.Context, rec domain.OrderImpactRecord) error
	// ListByStore yields records newest orderDate first. Every range over the
	// sequence re-reads the store.
	ListByStore(ctx context.Context, storeID string, r DateRange) iter.Seq2[domain.OrderImpactRecord, error]
}

// Expirer is implemented by stores without native TTL support.
type Expirer interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type RateProvider interface {
	Name() string
	Quote(ctx context.Context, pair domain.Pair) (domain.Quote, error)
}
