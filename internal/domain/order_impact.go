package domain

import "time"

const OrderImpactTTL = 365 * 24 * time.Hour

type OrderImpactRecord struct {
	OrderID          string
	StoreID          string
	OrderDate        time.Time
	OrderAmount      float64
	OrderRate        float64
	CurrentRate      float64
	MarginLoss       float64
	PercentageChange float64
	Timestamp        time.Time
	ExpiresAt        time.Time
}
