package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeImpact_RateRose(t *testing.T) {
	got, err := ComputeImpact(1000, 83.00, 85.00)
	require.NoError(t, err)
	require.InDelta(t, 83000, got.ExpectedAmount, 1e-9)
	require.InDelta(t, 85000, got.CurrentAmount, 1e-9)
	require.InDelta(t, -2000, got.MarginLoss, 1e-9)
	require.InDelta(t, 2.4096, got.PercentageChange, 1e-4)
	require.Equal(t, "Margin impact is within acceptable range", got.Suggestion)
}

func TestComputeImpact_RateFell(t *testing.T) {
	got, err := ComputeImpact(1000, 85.00, 83.00)
	require.NoError(t, err)
	require.InDelta(t, 2000, got.MarginLoss, 1e-9)
	require.InDelta(t, -2.3529, got.PercentageChange, 1e-4)
	// ceil(|-2.35|) = 3, always expressed as a positive raise
	require.Equal(t, "Consider raising prices by 3% to maintain margins", got.Suggestion)
}

func TestComputeImpact_LossBelowTolerance(t *testing.T) {
	// loss = 100 * (85 - 84.99) = 1, tolerance = 2
	got, err := ComputeImpact(100, 85.00, 84.99)
	require.NoError(t, err)
	require.InDelta(t, 1, got.MarginLoss, 1e-9)
	require.Equal(t, "Margin impact is within acceptable range", got.Suggestion)
}

func TestComputeImpact_Deterministic(t *testing.T) {
	a, err := ComputeImpact(1234.56, 82.1234, 83.9876)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := ComputeImpact(1234.56, 82.1234, 83.9876)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestComputeImpact_RejectsNonPositiveRate(t *testing.T) {
	_, err := ComputeImpact(100, 0, 83)
	require.Error(t, err)
}

func TestDailyDrift(t *testing.T) {
	change, pct := DailyDrift(84, 83)
	require.InDelta(t, 1, change, 1e-9)
	require.InDelta(t, 1.2048, pct, 1e-4)

	change, pct = DailyDrift(84, 0)
	require.Zero(t, change)
	require.Zero(t, pct)
}

func TestParseOrderDate(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-01T10:15:00Z":      time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC),
		"2025-03-01T10:15:00+05:30": time.Date(2025, 3, 1, 4, 45, 0, 0, time.UTC),
		"2025-03-01T10:15:00.250Z":  time.Date(2025, 3, 1, 10, 15, 0, 250e6, time.UTC),
		"2025-03-01T10:15:00":       time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC),
		"2025-03-01":                time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseOrderDate(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, err := ParseOrderDate("yesterday")
	require.ErrorIs(t, err, ErrValidation)
}
