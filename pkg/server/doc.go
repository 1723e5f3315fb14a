// Package server wires the relay's routes and middleware into an
// http.Server and manages its lifecycle.
//
// # Routes
//
//   - POST /api/gemini: forward a prompt upstream
//   - GET /: plain-text banner
//   - GET /health: liveness probe
//   - GET /ready: readiness probe (upstream reachability, audit store)
//   - GET /version: build information
//   - GET /metrics: Prometheus metrics, when enabled
//
// Any other path answers 404 with a JSON error body.
//
// # Middleware Chain
//
// Requests pass through, outermost first:
//  1. RequestID: assigns or propagates X-Request-ID
//  2. Logging: one access log line per request
//  3. Recovery: turns panics into a JSON 500
//
// # Lifecycle
//
//	srv, err := server.NewServer(cfg, server.Dependencies{Generate: h, Health: checker})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // blocks until ctx is canceled
//
// When ctx is canceled the server stops accepting connections and waits up
// to server.shutdown_timeout for in-flight requests to finish.
package server
