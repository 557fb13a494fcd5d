package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-margin-guard/internal/domain"
)

type CurrentRate struct {
	Pair               domain.Pair
	Rate               float64
	Timestamp          time.Time
	DailyChange        float64
	DailyChangePercent float64
}

// RateQueryService is read-only.
type RateQueryService struct {
	rates RateStore
	base
}

func NewRateQueryService(rates RateStore, opts ...Option) *RateQueryService {
	return &RateQueryService{rates: rates, base: newBase(opts)}
}

func (s *RateQueryService) CurrentRate(ctx context.Context, from, to string) (CurrentRate, error) {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return CurrentRate{}, err
	}
	latest, err := s.rates.Latest(ctx, pair)
	if errors.Is(err, domain.ErrNotFound) {
		return CurrentRate{}, fmt.Errorf("%w: no rates for %s", domain.ErrNoData, pair)
	}
	if err != nil {
		return CurrentRate{}, fmt.Errorf("latest %s: %w", pair, err)
	}

	out := CurrentRate{Pair: pair, Rate: latest.Rate, Timestamp: latest.Timestamp}
	ref, err := s.rates.ByDerivedKey(ctx, pair.DailyReferenceKey(s.clock.Now()))
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return CurrentRate{}, fmt.Errorf("daily reference %s: %w", pair, err)
	default:
		out.DailyChange, out.DailyChangePercent = domain.DailyDrift(latest.Rate, ref.Rate)
	}
	return out, nil
}
