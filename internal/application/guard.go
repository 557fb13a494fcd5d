package application

import "context"

// SlotGuard reserves a scheduling slot so that only one replica runs it.
type SlotGuard interface {
	// TryReserve returns true if key was absent and is now reserved.
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopGuard always grants the slot; used when redis is disabled.
type NoopGuard struct{}

func (NoopGuard) TryReserve(context.Context, string) (bool, error) { return true, nil }
