// Package audit keeps an append-only log of forwarded exchanges.
//
// The log is disabled by default. When enabled, the Recorder receives an
// Exchange after every forwarded request and writes a Record on a
// background goroutine; the request path never waits on storage and never
// reads from it. Records hold identifiers, the outcome and latency, and a
// SHA-256 of the prompt. Prompt text is never stored.
//
// # Backends
//
//   - SQLStorage: SQLite through database/sql, with the pure-Go
//     modernc.org/sqlite driver ("sqlite", default) or the cgo
//     github.com/mattn/go-sqlite3 driver ("sqlite3")
//   - MemoryStorage: process memory, for tests
//
// # Retention
//
// A Pruner deletes records older than audit.retention_days; a Scheduler
// runs it on audit.prune_schedule (cron syntax, default "0 3 * * *").
//
//	store, err := audit.Open(cfg.Audit)
//	recorder := audit.NewRecorder(store, audit.RecorderConfig{BufferSize: 1000})
//	defer recorder.Close()
//
//	scheduler := audit.NewScheduler(audit.NewPruner(store, 30), "0 3 * * *")
//	_ = scheduler.Start(ctx)
package audit
