// Package bootstrap runs a tailpipe binary's lifecycle: typed config,
// component registration, start and stop hooks, signal handling and a
// startup summary.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(svc)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    select {
//	    case <-svc.Done():
//	        return svc.Err()
//	    case <-ctx.Done():
//	        return nil
//	    }
//	})
//
// Components start in registration order and stop in reverse.
package bootstrap
