package dynamo

import (
	"time"

	"fx-margin-guard/internal/domain"
)

const (
	attrPair      = "currencyPair"
	attrTimestamp = "timestamp"
	attrTTL       = "ttl"
	attrOrderID   = "orderId"
	attrStoreID   = "storeId"
	attrOrderDate = "orderDate"

	// orderDateLayout is fixed width so the index sorts lexicographically.
	orderDateLayout = "2006-01-02T15:04:05.000Z"
)

type rateItem struct {
	CurrencyPair string  `dynamodbav:"currencyPair"`
	Timestamp    int64   `dynamodbav:"timestamp"`
	Rate         float64 `dynamodbav:"rate"`
	Source       string  `dynamodbav:"source"`
	Type         string  `dynamodbav:"type,omitempty"`
	// AcquiredAt is set on daily reference items, whose sort key is pinned to 0.
	AcquiredAt int64 `dynamodbav:"acquiredAt,omitempty"`
	TTL        int64 `dynamodbav:"ttl"`
}

func toRateItem(r domain.RateRecord) rateItem {
	it := rateItem{
		CurrencyPair: r.CurrencyPair,
		Timestamp:    domain.ToMillis(r.Timestamp),
		Rate:         r.Rate,
		Source:       r.Source,
		Type:         r.Type,
		TTL:          r.ExpiresAt.Unix(),
	}
	if r.IsDailyReference() {
		it.AcquiredAt = it.Timestamp
		it.Timestamp = 0
	}
	return it
}

func (it rateItem) record() domain.RateRecord {
	ts := it.Timestamp
	if it.AcquiredAt != 0 {
		ts = it.AcquiredAt
	}
	return domain.RateRecord{
		CurrencyPair: it.CurrencyPair,
		Timestamp:    domain.FromMillis(ts),
		Rate:         it.Rate,
		Source:       it.Source,
		Type:         it.Type,
		ExpiresAt:    time.Unix(it.TTL, 0).UTC(),
	}
}

type orderItem struct {
	OrderID          string  `dynamodbav:"orderId"`
	StoreID          string  `dynamodbav:"storeId"`
	OrderDate        string  `dynamodbav:"orderDate"`
	OrderAmount      float64 `dynamodbav:"orderAmount"`
	OrderRate        float64 `dynamodbav:"orderRate"`
	CurrentRate      float64 `dynamodbav:"currentRate"`
	MarginLoss       float64 `dynamodbav:"marginLoss"`
	PercentageChange float64 `dynamodbav:"percentageChange"`
	Timestamp        int64   `dynamodbav:"timestamp"`
	TTL              int64   `dynamodbav:"ttl"`
}

func formatOrderDate(t time.Time) string { return t.UTC().Format(orderDateLayout) }

func toOrderItem(r domain.OrderImpactRecord) orderItem {
	return orderItem{
		OrderID:          r.OrderID,
		StoreID:          r.StoreID,
		OrderDate:        formatOrderDate(r.OrderDate),
		OrderAmount:      r.OrderAmount,
		OrderRate:        r.OrderRate,
		CurrentRate:      r.CurrentRate,
		MarginLoss:       r.MarginLoss,
		PercentageChange: r.PercentageChange,
		Timestamp:        domain.ToMillis(r.Timestamp),
		TTL:              r.ExpiresAt.Unix(),
	}
}

func (it orderItem) record() (domain.OrderImpactRecord, error) {
	date, err := time.Parse(orderDateLayout, it.OrderDate)
	if err != nil {
		return domain.OrderImpactRecord{}, err
	}
	return domain.OrderImpactRecord{
		OrderID:          it.OrderID,
		StoreID:          it.StoreID,
		OrderDate:        date.UTC(),
		OrderAmount:      it.OrderAmount,
		OrderRate:        it.OrderRate,
		CurrentRate:      it.CurrentRate,
		MarginLoss:       it.MarginLoss,
		PercentageChange: it.PercentageChange,
		Timestamp:        domain.FromMillis(it.Timestamp),
		ExpiresAt:        time.Unix(it.TTL, 0).UTC(),
	}, nil
}
