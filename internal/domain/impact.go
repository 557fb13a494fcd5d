package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred             = decimal.NewFromInt(100)
	marginLossTolerance = decimal.NewFromFloat(0.02)
)

const withinRangeSuggestion = "Margin impact is within acceptable range"

// Impact is the drift between the rate at order time and the current rate,
// expressed in quote currency.
type Impact struct {
	OrderRate        float64
	CurrentRate      float64
	ExpectedAmount   float64
	CurrentAmount    float64
	MarginLoss       float64
	PercentageChange float64
	Suggestion       string
}

// ComputeImpact is a pure function of its inputs. A positive MarginLoss means the
// order now converts to fewer quote units than it did at order time.
func ComputeImpact(orderAmount, orderRate, currentRate float64) (Impact, error) {
	if orderRate <= 0 || currentRate <= 0 {
		return Impact{}, errors.New("impact: rates must be positive")
	}
	amount := decimal.NewFromFloat(orderAmount)
	then := decimal.NewFromFloat(orderRate)
	now := decimal.NewFromFloat(currentRate)

	expected := amount.Mul(then)
	current := amount.Mul(now)
	loss := expected.Sub(current)
	pct := now.Sub(then).Div(then).Mul(hundred)

	return Impact{
		OrderRate:        orderRate,
		CurrentRate:      currentRate,
		ExpectedAmount:   expected.InexactFloat64(),
		CurrentAmount:    current.InexactFloat64(),
		MarginLoss:       loss.InexactFloat64(),
		PercentageChange: pct.InexactFloat64(),
		Suggestion:       suggest(amount, loss, pct),
	}, nil
}

// suggest asks for a price raise once the loss exceeds 2% of the order face value.
// The raise is the magnitude of the rate drop rounded up to a whole percent.
func suggest(amount, loss, pct decimal.Decimal) string {
	if !loss.GreaterThan(amount.Mul(marginLossTolerance)) {
		return withinRangeSuggestion
	}
	raise := pct.Abs().Ceil().IntPart()
	return fmt.Sprintf("Consider raising prices by %d%% to maintain margins", raise)
}

// DailyDrift returns the absolute and percentage change of latest against the
// day's reference rate.
func DailyDrift(latest, reference float64) (change, percent float64) {
	if reference <= 0 {
		return 0, 0
	}
	l := decimal.NewFromFloat(latest)
	r := decimal.NewFromFloat(reference)
	d := l.Sub(r)
	return d.InexactFloat64(), d.Div(r).Mul(hundred).InexactFloat64()
}

var orderDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseOrderDate accepts ISO-8601 timestamps; forms without a zone are UTC.
func ParseOrderDate(s string) (time.Time, error) {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable orderDate %q", ErrValidation, s)
}
