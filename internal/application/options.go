package application

import (
	"time"

	"go.uber.org/zap"
)

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type base struct {
	clock Clock
	log   *zap.Logger
	uow   UnitOfWork
}

type Option func(*base)

func WithClock(c Clock) Option           { return func(b *base) { b.clock = c } }
func WithLogger(l *zap.Logger) Option    { return func(b *base) { b.log = l } }
func WithUnitOfWork(u UnitOfWork) Option { return func(b *base) { b.uow = u } }

func newBase(opts []Option) base {
	var b base
	for _, opt := range opts {
		opt(&b)
	}
	if b.clock == nil {
		b.clock = realClock{}
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.uow == nil {
		b.uow = NoopUoW{}
	}
	return b
}
