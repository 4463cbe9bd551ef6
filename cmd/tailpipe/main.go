// Command tailpipe follows a growing file and routes each new line to every
// output whose pattern matches it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/kbukum/tailpipe/bootstrap"
	"github.com/kbukum/tailpipe/observability"
	"github.com/kbukum/tailpipe/output"
	"github.com/kbukum/tailpipe/status"
	"github.com/kbukum/tailpipe/tailer"
	"github.com/kbukum/tailpipe/version"
)

const (
	appName   = "tailpipe"
	meterName = "github.com/kbukum/tailpipe"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if flags.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", appName, version.Get())
		return nil
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithSummary(stderr))
	if err != nil {
		return err
	}
	svc, err := setup(ctx, app, stdout, stderr)
	if err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		select {
		case <-svc.Done():
			return svc.Err()
		case <-ctx.Done():
			return nil
		}
	})
}

// setup registers the components in start order: NATS, the pipeline, then
// the status server.
func setup(ctx context.Context, app *bootstrap.App[*AppConfig], stdout, stderr io.Writer) (*tailer.Service, error) {
	cfg := app.Cfg

	shutdownTelemetry, err := observability.Init(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	app.OnShutdown(shutdownTelemetry)

	opener := &output.Opener{Stdout: stdout, Stderr: stderr}
	if output.NeedsNATS(cfg.outputs()) {
		nc := output.NewNATSClient(cfg.NATS)
		if err := app.RegisterComponent(nc); err != nil {
			return nil, err
		}
		opener.Publisher = nc
	}

	opts := []tailer.Option{
		tailer.WithOpener(opener),
		tailer.WithLogger(app.Logger.WithComponent("tailer")),
	}
	if cfg.Pipeline.Instrument {
		metrics, err := observability.NewMetrics(observability.Meter(meterName))
		if err != nil {
			return nil, fmt.Errorf("observability: %w", err)
		}
		opts = append(opts, tailer.WithMetrics(metrics))
	}
	svc := tailer.New(cfg.Pipeline, opts...)
	if err := app.RegisterComponent(svc); err != nil {
		return nil, err
	}

	if cfg.Status.Enabled {
		srv := status.New(cfg.Status, cfg.Name, svc, app.Components.HealthAll, app.Logger.WithComponent("status"))
		if err := app.RegisterComponent(srv); err != nil {
			return nil, err
		}
	}

	for _, r := range cfg.Pipeline.Routes {
		app.Summary.TrackRoute(bootstrap.RouteInfo{
			Name:    r.Name,
			Match:   r.Match,
			Pattern: r.Pattern,
			Invert:  r.Invert,
			Output:  r.Output,
		})
	}
	return svc, nil
}
