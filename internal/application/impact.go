package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-margin-guard/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ImpactRequest struct {
	OrderAmount  float64 `validate:"required,gt=0"`
	OrderDate    string  `validate:"required"`
	FromCurrency string  `validate:"required"`
	ToCurrency   string  `validate:"required"`
	OrderID      string
	StoreID      string
}

// ImpactResult carries the computed impact. PersistErr reports the optional
// order record write and never turns a computed impact into a failure.
type ImpactResult struct {
	domain.Impact
	PersistErr error
}

type ImpactService struct {
	rates  RateStore
	orders OrderImpactStore
	base
}

func NewImpactService(rates RateStore, orders OrderImpactStore, opts ...Option) *ImpactService {
	return &ImpactService{rates: rates, orders: orders, base: newBase(opts)}
}

func (s *ImpactService) Calculate(ctx context.Context, req ImpactRequest) (ImpactResult, error) {
	if err := validateImpactRequest(req); err != nil {
		return ImpactResult{}, err
	}
	orderAt, err := domain.ParseOrderDate(req.OrderDate)
	if err != nil {
		return ImpactResult{}, err
	}
	pair, err := domain.NewPair(req.FromCurrency, req.ToCurrency)
	if err != nil {
		return ImpactResult{}, err
	}

	then, err := s.rates.AtOrBefore(ctx, pair, orderAt)
	if err != nil {
		return ImpactResult{}, noData(pair, err)
	}
	now, err := s.rates.Latest(ctx, pair)
	if err != nil {
		return ImpactResult{}, noData(pair, err)
	}

	impact, err := domain.ComputeImpact(req.OrderAmount, then.Rate, now.Rate)
	if err != nil {
		return ImpactResult{}, err
	}
	res := ImpactResult{Impact: impact}

	if req.OrderID != "" && req.StoreID != "" {
		res.PersistErr = s.persist(ctx, req, orderAt, impact)
	}
	return res, nil
}

func (s *ImpactService) persist(ctx context.Context, req ImpactRequest, orderAt time.Time, impact domain.Impact) error {
	if s.orders == nil {
		return nil
	}
	calculatedAt := s.clock.Now().UTC()
	rec := domain.OrderImpactRecord{
		OrderID:          req.OrderID,
		StoreID:          req.StoreID,
		OrderDate:        orderAt,
		OrderAmount:      req.OrderAmount,
		OrderRate:        impact.OrderRate,
		CurrentRate:      impact.CurrentRate,
		MarginLoss:       impact.MarginLoss,
		PercentageChange: impact.PercentageChange,
		Timestamp:        calculatedAt,
		ExpiresAt:        calculatedAt.Add(domain.OrderImpactTTL),
	}
	if err := s.orders.Put(ctx, rec); err != nil {
		s.log.Warn("impact.persist_failed",
			zap.String("order_id", req.OrderID),
			zap.String("store_id", req.StoreID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ListStoreImpacts materializes at most limit records from the store listing.
func (s *ImpactService) ListStoreImpacts(ctx context.Context, storeID string, r DateRange, limit int) ([]domain.OrderImpactRecord, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: storeId is required", domain.ErrValidation)
	}
	out := []domain.OrderImpactRecord{}
	for rec, err := range s.orders.ListByStore(ctx, storeID, r) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func validateImpactRequest(req ImpactRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fmt.Errorf("%w: missing required fields", domain.ErrValidation)
		}
	}
	return fmt.Errorf("%w: %s must be positive", domain.ErrValidation, verrs[0].Field())
}

func noData(pair domain.Pair, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: exchange rates not found for %s", domain.ErrNoData, pair)
	}
	return fmt.Errorf("rate lookup %s: %w", pair, err)
}
