package audit

import (
	"fmt"

	"mercator-hq/relay/pkg/config"
)

// Open creates the storage backend selected by cfg.
func Open(cfg config.AuditConfig) (Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		return NewSQLStorage(SQLConfig{
			Driver:      cfg.Driver,
			Path:        cfg.Path,
			WALMode:     true,
			BusyTimeout: cfg.WriteTimeout,
		})
	default:
		return nil, NewStorageError(cfg.Backend, "open", fmt.Errorf("unsupported backend %q", cfg.Backend))
	}
}
