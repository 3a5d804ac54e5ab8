// Package bootstrap runs a livecue binary. NewApp validates the typed
// config and initializes logging. Run starts registered components in
// order, runs the ready hooks, then keeps background tasks going until a
// shutdown signal or the first task failure, and finally stops components
// in reverse within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(hub)
//	app.RegisterComponent(server)
//	app.OnReady("llm", probeProvider)
//	app.Go("levels", publisher.Run)
//	return app.Run(ctx)
package bootstrap
