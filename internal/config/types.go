package config

import (
	logx "taskmill/pkg/logx"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Comm    CommConfig    `json:"comm"`
	Logging LoggingConfig `json:"logging"`
	Time    TimeConfig    `json:"time"`

	// Pool controls the work-stealing task pool.
	Pool PoolConfig `json:"pool"`

	// History controls the optional run-history persistence layer.
	// Nil means disabled.
	History *HistoryConfig `json:"history,omitempty"`

	// Debug controls the optional local debug HTTP endpoint (statsz, pprof).
	// Nil means disabled.
	Debug *DebugConfig `json:"debug,omitempty"`

	// Jobs are the periodic jobs submitted to the pool on a schedule.
	Jobs []JobConfig `json:"jobs,omitempty"`
}

// ServerConfig identifies this instance. ListenerPort and IPAddress are
// advertised in logs and the journald identity only; nothing listens yet.
type ServerConfig struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name,omitempty"`
	ListenerPort int    `json:"listener_port,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
}

// CommConfig carries socket-facing knobs for components built on top of the
// pool. SocketTimeout is a Go duration string (e.g. "500ms", "10s").
type CommConfig struct {
	Blocking      bool   `json:"blocking"`
	SocketTimeout string `json:"socket_timeout,omitempty"`
}

type LoggingConfig struct {
	// Level is a named level (trace/debug/info/warn/error). When empty,
	// Filter decides: 0 disables, 1 info, 2 debug, 3 trace.
	Level   string         `json:"level,omitempty"`
	Filter  int            `json:"filter,omitempty"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Journal LoggingJournal `json:"journal"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// Flush forces an fsync after every write.
	Flush bool `json:"flush,omitempty"`
}

type LoggingJournal struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// Logx maps the logging section onto the log service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Filter:  l.Filter,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
			Flush:   l.File.Flush,
		},
		Journal: logx.JournalConfig{
			Enabled:    l.Journal.Enabled,
			MinLevel:   l.Journal.MinLevel,
			RatePerSec: l.Journal.RatePerSec,
		},
	}
}

// TimeConfig controls the housekeeping tick. Period is a Go duration string;
// "0s" or empty disables the tick. Timezone is an IANA name used when
// resolving cron schedules; empty means the host timezone.
type TimeConfig struct {
	Period   string `json:"period,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// PoolConfig controls the work-stealing pool.
//
// Defaults (when fields are omitted/zero):
//   - max_working_threads: NumCPU
//   - queue_capacity: 64
type PoolConfig struct {
	// MaxWorkingThreads is the worker count. Zero means NumCPU; use -1 for
	// an explicitly empty pool (accepted for testing; it drops all work).
	MaxWorkingThreads int  `json:"max_working_threads,omitempty"`
	PinOSThreads      bool `json:"pin_os_threads,omitempty"`
	QueueCapacity     int  `json:"queue_capacity,omitempty"`
}

// Workers resolves MaxWorkingThreads to an actual worker count.
func (p PoolConfig) Workers(hwThreads int) int {
	switch {
	case p.MaxWorkingThreads > 0:
		return p.MaxWorkingThreads
	case p.MaxWorkingThreads < 0:
		return 0
	default:
		return hwThreads
	}
}

// HistoryConfig controls run-history persistence.
//
// Example:
//
//	"history": { "driver": "file", "path": "./taskmill_history" }
type HistoryConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	MaxRecords  int    `json:"max_records,omitempty"`
}

// DebugConfig controls the debug HTTP endpoint. Binding beyond loopback
// requires a token unless allow_insecure is set.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
	MemProfileRate       int `json:"mem_profile_rate,omitempty"`
}

// JobConfig describes one periodic job.
//
// Schedule accepts a cron expression, a Go duration ("10m",
// "interval:45s"), or an HH:MM interval ("02:30" runs every 2.5 hours).
type JobConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Enabled  bool   `json:"enabled"`
}
