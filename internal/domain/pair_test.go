package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPair(t *testing.T) {
	p, err := NewPair("usd", " inr")
	require.NoError(t, err)
	require.Equal(t, Pair("USD-INR"), p)
	require.Equal(t, "USD", p.Base())
	require.Equal(t, "INR", p.Quote())

	for _, c := range [][2]string{{"", "INR"}, {"US", "INR"}, {"USD", "USD"}, {"U5D", "INR"}} {
		_, err := NewPair(c[0], c[1])
		require.ErrorIs(t, err, ErrValidation, c)
	}
}

func TestParsePair(t *testing.T) {
	p, err := ParsePair("EUR-USD")
	require.NoError(t, err)
	require.Equal(t, Pair("EUR-USD"), p)

	_, err = ParsePair("EUR/USD")
	require.ErrorIs(t, err, ErrValidation)
}

func TestDailyReferenceKey_UsesUTCDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 02:00 IST on the 2nd is still the 1st in UTC
	at := time.Date(2025, 6, 2, 2, 0, 0, 0, ist)
	require.Equal(t, "USD-INR-DAILY-2025-06-01", DefaultPair.DailyReferenceKey(at))
}

func TestRateRecord_DailyReference(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	rec := NewRateRecord(Quote{Pair: DefaultPair, Rate: 83.2, Source: "fixer.io"}, now)
	require.Equal(t, now.Add(RateTTL), rec.ExpiresAt)
	require.False(t, rec.IsDailyReference())

	ref := rec.DailyReference(DefaultPair)
	require.Equal(t, "USD-INR-DAILY-2025-06-01", ref.CurrencyPair)
	require.True(t, ref.IsDailyReference())
	require.Equal(t, rec.Rate, ref.Rate)
	require.Equal(t, rec.Timestamp, ref.Timestamp)
}
