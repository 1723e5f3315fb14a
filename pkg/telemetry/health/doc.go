// Package health implements the relay's liveness, readiness and version
// probes.
//
// Liveness answers 200 whenever the process can serve HTTP. Readiness runs
// every registered check concurrently, each bounded by the checker timeout,
// and answers 503 with status "degraded" when any check fails:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("upstream", forwarder.Ping)
//	checker.Register("audit", func(ctx context.Context) error {
//	    if store == nil {
//	        return health.ErrDisabled
//	    }
//	    return store.Ping(ctx)
//	})
//
//	mux.Handle("GET /health", checker.LivenessHandler())
//	mux.Handle("GET /ready", checker.ReadinessHandler())
//	mux.Handle("GET /version", health.VersionHandler(version, commit, date))
//
// Probes never touch the request path; a failing readiness check only
// tells the orchestrator to stop routing traffic.
package health
