package application

import (
	"context"
	"errors"
	"fmt"

	"fx-margin-guard/internal/domain"

	"go.uber.org/zap"
)

// RateAcquisitionService fetches one fresh rate per call, falling back to the
// secondary provider when the primary cannot answer.
type RateAcquisitionService struct {
	rates     RateStore
	primary   RateProvider
	secondary RateProvider
	base
}

func NewRateAcquisitionService(rates RateStore, primary, secondary RateProvider, opts ...Option) *RateAcquisitionService {
	return &RateAcquisitionService{
		rates:     rates,
		primary:   primary,
		secondary: secondary,
		base:      newBase(opts),
	}
}

// Acquire fetches and persists a rate for pair together with the day's reference
// record. Nothing is written when both providers fail.
func (s *RateAcquisitionService) Acquire(ctx context.Context, pair domain.Pair) (domain.RateRecord, error) {
	log := s.log.With(zap.String("pair", string(pair)))

	q, err := s.fetch(ctx, log, pair)
	if err != nil {
		log.Error("acquire.providers_failed", zap.Error(err))
		return domain.RateRecord{}, err
	}

	rec := domain.NewRateRecord(q, s.clock.Now().UTC())
	ref := rec.DailyReference(pair)
	var refWritten bool
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.rates.Append(ctx, rec); err != nil {
			return fmt.Errorf("append rate: %w", err)
		}
		written, err := s.rates.PutDailyReferenceIfAbsent(ctx, ref)
		if err != nil {
			return fmt.Errorf("daily reference %s: %w", ref.CurrencyPair, err)
		}
		refWritten = written
		return nil
	})
	if err != nil {
		log.Error("acquire.persist_failed", zap.Error(err))
		return domain.RateRecord{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	log.Info("acquire.stored",
		zap.Float64("rate", rec.Rate),
		zap.String("source", rec.Source),
		zap.Int64("timestamp", domain.ToMillis(rec.Timestamp)),
		zap.Bool("daily_reference_written", refWritten),
	)
	return rec, nil
}

func (s *RateAcquisitionService) fetch(ctx context.Context, log *zap.Logger, pair domain.Pair) (domain.Quote, error) {
	q, primaryErr := quoteFrom(ctx, s.primary, pair)
	if primaryErr == nil {
		return q, nil
	}
	if errors.Is(primaryErr, domain.ErrQuotaExceeded) {
		log.Info("acquire.primary_unavailable", zap.String("provider", s.primary.Name()), zap.Error(primaryErr))
	} else {
		log.Warn("acquire.primary_failed", zap.String("provider", s.primary.Name()), zap.Error(primaryErr))
	}

	q, secondaryErr := quoteFrom(ctx, s.secondary, pair)
	if secondaryErr != nil {
		return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrProvider, errors.Join(primaryErr, secondaryErr))
	}
	return q, nil
}

func quoteFrom(ctx context.Context, p RateProvider, pair domain.Pair) (domain.Quote, error) {
	q, err := p.Quote(ctx, pair)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if q.Rate <= 0 {
		return domain.Quote{}, fmt.Errorf("%s: %w: non-positive rate %v", p.Name(), domain.ErrMissingQuote, q.Rate)
	}
	q.Pair = pair
	q.Source = p.Name()
	return q, nil
}
