package history

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures run-history persistence.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + compaction)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxRecords  int           // retained records; 0 means default (1000)
}

const defaultMaxRecords = 1000

func (c Config) maxRecords() int {
	if c.MaxRecords > 0 {
		return c.MaxRecords
	}
	return defaultMaxRecords
}

// Record is one completed task run.
// Keep it compact and schema-stable.
type Record struct {
	At       time.Time     `json:"at"`
	Worker   int           `json:"worker"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
