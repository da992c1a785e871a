package history

import (
	"context"
	"errors"
	"strings"

	logx "taskmill/pkg/logx"
)

// Store is the run-history persistence API.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns up to n records, newest last.
	Recent(ctx context.Context, n int) ([]Record, error)
	// Prune discards everything but the newest records per the retention
	// limit.
	Prune(ctx context.Context) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if history is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown history driver: " + driver)
	}
}
