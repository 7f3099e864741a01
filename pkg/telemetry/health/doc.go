// Package health provides liveness and readiness probes for the daemon.
//
// The daemon registers its stateful components (rule store, audit store,
// registry) with a Checker; the readiness probe runs those checks
// concurrently and returns 503 when any component is unhealthy, so
// orchestrators stop routing trigger traffic to a daemon that cannot
// record audit contexts.
//
//	checker := health.New(5 * time.Second)
//	checker.Register("audit_store", func(ctx context.Context) error {
//	    _, err := store.Count(ctx, nil)
//	    return err
//	})
//	health.Mount(mux, checker, version)
package health
