package bootstrap

import (
	"context"
	"fmt"

	"fx-margin-guard/internal/config"
)

type WorkerApp func(ctx context.Context) error

// InitWorkerApp returns a runner that either performs a single scheduled run
// (once) or ticks until ctx is canceled.
func InitWorkerApp(ctx context.Context, cfg config.Config, once bool) (WorkerApp, func(), error) {
	app, cleanup, err := Build(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("init worker: %w", err)
	}
	if once {
		return app.Scheduler.RunOnce, cleanup, nil
	}
	return func(ctx context.Context) error {
		app.Scheduler.Start(ctx)
		return nil
	}, cleanup, nil
}
