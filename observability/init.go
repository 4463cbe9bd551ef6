package observability

import (
	"context"
	stderrors "errors"
)

// Init starts trace and metric export when cfg.Enabled. The returned
// function flushes and shuts down both providers; it is a no-op when export
// is disabled.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, cfg.TracerConfig())
	if err != nil {
		return nil, err
	}
	mcfg := cfg.MeterConfig()
	mp, err := InitMeter(ctx, &mcfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
