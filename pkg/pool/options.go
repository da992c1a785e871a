package pool

import (
	"runtime"

	"taskmill/internal/eventbus"
	logx "taskmill/pkg/logx"
)

// Option configures a Pool.
type Option func(*Config)

// Config holds all pool configuration.
type Config struct {
	// Workers is the number of worker goroutines. Zero is a valid (degenerate)
	// pool: it accepts submissions but never executes them.
	Workers int

	// OnWorkerStart runs once inside each worker before its work loop, with
	// the worker's id. Panics from it are swallowed.
	OnWorkerStart func(id int)

	// PinWorkerThreads locks each worker goroutine to its OS thread.
	PinWorkerThreads bool

	// QueueCapacity is the initial capacity of each worker's task queue and
	// of the rotation queue. Queues grow without bound; this only sizes the
	// first allocation.
	QueueCapacity int

	// Logger receives pool lifecycle and drop diagnostics. Zero value is a
	// no-op.
	Logger logx.Logger

	// Bus, when set, receives task.done / task.dropped / pool lifecycle
	// events for observers such as the run-history service.
	Bus eventbus.Bus
}

func defaultConfig() Config {
	return Config{
		Workers:       runtime.NumCPU(),
		QueueCapacity: 64,
	}
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return errInvalidConfig("Workers must be >= 0")
	}
	if c.QueueCapacity < 0 {
		return errInvalidConfig("QueueCapacity must be >= 0")
	}
	return nil
}

// WithWorkers sets the worker count. Zero is allowed and yields a pool that
// silently drops every submission.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithOnWorkerStart sets the per-worker init callback.
func WithOnWorkerStart(fn func(id int)) Option {
	return func(c *Config) { c.OnWorkerStart = fn }
}

// WithPinWorkerThreads locks workers to their OS threads.
func WithPinWorkerThreads(pin bool) Option {
	return func(c *Config) { c.PinWorkerThreads = pin }
}

// WithQueueCapacity sets the initial per-queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueCapacity = n
		}
	}
}

// WithLogger sets the pool's logger.
func WithLogger(log logx.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithBus sets the event bus for task lifecycle events.
func WithBus(bus eventbus.Bus) Option {
	return func(c *Config) { c.Bus = bus }
}
