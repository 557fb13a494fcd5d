package domain

import "time"

const (
	RateTTL = 90 * 24 * time.Hour

	RecordTypeDailyReference = "daily_reference"
)

// RateRecord is one acquired rate. CurrencyPair is either a Pair or a derived
// key such as a daily reference key.
type RateRecord struct {
	CurrencyPair string
	Timestamp    time.Time
	Rate         float64
	Source       string
	Type         string
	ExpiresAt    time.Time
}

func (r RateRecord) IsDailyReference() bool { return r.Type == RecordTypeDailyReference }

// Quote is a provider answer before it is persisted.
type Quote struct {
	Pair     Pair
	Rate     float64
	Source   string
	QuotedAt time.Time
}

// NewRateRecord stamps a quote with the acquisition instant.
func NewRateRecord(q Quote, now time.Time) RateRecord {
	return RateRecord{
		CurrencyPair: string(q.Pair),
		Timestamp:    now,
		Rate:         q.Rate,
		Source:       q.Source,
		ExpiresAt:    now.Add(RateTTL),
	}
}

// DailyReference derives the reference record for the calendar day of r.
func (r RateRecord) DailyReference(p Pair) RateRecord {
	return RateRecord{
		CurrencyPair: p.DailyReferenceKey(r.Timestamp),
		Timestamp:    r.Timestamp,
		Rate:         r.Rate,
		Source:       r.Source,
		Type:         RecordTypeDailyReference,
		ExpiresAt:    r.ExpiresAt,
	}
}

// UnixMilli helpers keep the wire and storage representation in one place.
func ToMillis(t time.Time) int64 { return t.UnixMilli() }

func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
