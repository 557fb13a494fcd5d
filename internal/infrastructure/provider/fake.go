package provider

import (
	"context"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
)

// Ensure Fake implements application.RateProvider.
var _ application.RateProvider = (*Fake)(nil)

// Fake answers every pair with a fixed rate. Used for local runs (PROVIDER=fake).
type Fake struct {
	name string
	rate float64
}

func NewFake(name string, rate float64) *Fake { return &Fake{name: name, rate: rate} }

func (f *Fake) Name() string { return f.name }

func (f *Fake) Quote(_ context.Context, pair domain.Pair) (domain.Quote, error) {
	return domain.Quote{
		Pair:     pair,
		Rate:     f.rate,
		Source:   f.name,
		QuotedAt: time.Now().UTC(),
	}, nil
}
