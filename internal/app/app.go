// Package app wires the scheduler runtime: config, logging, event bus,
// run history, the work-stealing pool, and the periodic trigger service.
package app

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"taskmill/internal/config"
	"taskmill/internal/eventbus"
	"taskmill/internal/history"
	"taskmill/internal/observability/debughttp"
	"taskmill/internal/periodic"
	"taskmill/internal/runtime/supervisor"
	logx "taskmill/pkg/logx"
	"taskmill/pkg/pool"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store history.Store
	rec   *history.Recorder

	pool  *pool.Pool
	per   *periodic.Service
	debug *debughttp.Service

	// registered tracks job names this app armed, so a config reload can
	// retire jobs that were removed from the file.
	registered map[string]bool
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.Logging.Logx())
	log = log.With(logx.String("comp", "app"))

	if name := strings.TrimSpace(cfg.Server.Name); name != "" {
		log.Info("instance",
			logx.String("name", name),
			logx.String("display_name", cfg.Server.DisplayName),
			logx.Int("listener_port", cfg.Server.ListenerPort),
			logx.String("ip", cfg.Server.IPAddress),
		)
	}

	bus := eventbus.New()

	// Run history (optional)
	var store history.Store
	if hc, enabled, err := mapHistoryConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := history.Open(hc, log.With(logx.String("comp", "history")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("history enabled", logx.String("driver", hc.Driver))
		}
	}

	workers := cfg.Pool.Workers(runtime.NumCPU())
	p, err := pool.New(
		pool.WithWorkers(workers),
		pool.WithPinWorkerThreads(cfg.Pool.PinOSThreads),
		pool.WithQueueCapacity(cfg.Pool.QueueCapacity),
		pool.WithLogger(log.With(logx.String("comp", "pool"))),
		pool.WithBus(bus),
	)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	per := periodic.New(periodic.Config{
		Timezone: cfg.Time.Timezone,
	}, p, log.With(logx.String("comp", "periodic")))

	a := &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		bus:        bus,
		store:      store,
		rec:        history.NewRecorder(store, bus, log.With(logx.String("comp", "history"))),
		pool:       p,
		per:        per,
		registered: make(map[string]bool),
	}

	dc, err := mapDebugConfig(cfg)
	if err != nil {
		a.pool.Close()
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}
	a.debug = debughttp.New(dc, log.With(logx.String("comp", "debug")), a.statusSnapshot)

	a.applyJobs(cfg)
	return a, nil
}

// statusSnapshot assembles the /statsz payload.
func (a *App) statusSnapshot() any {
	out := map[string]any{
		"pool":     a.pool.Stats(),
		"periodic": a.per.SnapshotNow(),
	}
	if a.sup != nil {
		out["supervisor"] = a.sup.SnapshotNow()
	}
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if recent, err := a.store.Recent(ctx, 20); err == nil {
			out["recent_runs"] = recent
		}
	}
	return out
}

// Pool exposes the task pool for callers embedding the app.
func (a *App) Pool() *pool.Pool { return a.pool }

// Periodic exposes the trigger service for callers embedding the app.
func (a *App) Periodic() *periodic.Service { return a.per }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
			return validateConfig(cfg)
		})
	}

	a.per.Start(a.sup.Context())

	if a.debug.Enabled() {
		a.debug.Start(a.sup.Context())
	}

	if a.store != nil {
		a.sup.GoRestart("history.record", a.rec.Run)
	}

	// Debug visibility into bus traffic; observers subscribe on their own.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if a.log.Enabled(logx.LevelTrace) {
					a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				}
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs, changedJobs := config.SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Debug("config change summary", fields...)
					if len(changedJobs) > 0 {
						a.log.Debug("job config changes detected", logx.Any("jobs", changedJobs))
					}
				} else {
					a.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				for _, s := range sections {
					if s == "pool" || s == "history" {
						a.log.Warn("config section changed; restart required for changes to take effect",
							logx.String("section", s))
					}
				}

				// apply logging updates
				a.logs.Apply(newCfg.Logging.Logx())

				// apply trigger updates (live): timezone first, then jobs
				a.per.Apply(periodic.Config{Timezone: newCfg.Time.Timezone})
				a.applyJobs(newCfg)

				// apply debug endpoint updates (live)
				if dc, err := mapDebugConfig(newCfg); err != nil {
					a.log.Warn("invalid debug config; keeping previous", logx.Err(err))
				} else {
					a.debug.Reconfigure(c, dc)
				}

				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Info("config reloaded", fields...)
				} else {
					a.log.Info("config reloaded (no changes)")
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.Int("workers", a.pool.Size()))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Bound each shutdown step so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	// Triggers stop first so no new work lands in the pool, then the pool
	// drains everything already queued before joining its workers. The
	// recorder is canceled only after the drain so those runs still land
	// in history.
	step("periodic", 3*time.Second, func(c context.Context) error { a.per.Stop(c); return nil })
	step("debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("pool", 10*time.Second, func(c context.Context) error { a.pool.Close(); return nil })

	a.sup.Cancel()
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	step("history", time.Second, func(c context.Context) error {
		if a.store == nil {
			return nil
		}
		return a.store.Close()
	})

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

func mapHistoryConfig(cfg *config.Config) (history.Config, bool, error) {
	if cfg.History == nil {
		return history.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("history.busy_timeout", cfg.History.BusyTimeout, 0)
	if err != nil {
		return history.Config{}, false, err
	}
	return history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		BusyTimeout: busy,
		MaxRecords:  cfg.History.MaxRecords,
	}, true, nil
}

func mapDebugConfig(cfg *config.Config) (debughttp.Config, error) {
	d := cfg.Debug
	if d == nil {
		return debughttp.Config{}, nil
	}
	rt, err := config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 5*time.Second)
	if err != nil {
		return debughttp.Config{}, err
	}
	wt, err := config.ParseDurationOrDefault("debug.write_timeout", d.WriteTimeout, 30*time.Second)
	if err != nil {
		return debughttp.Config{}, err
	}
	it, err := config.ParseDurationOrDefault("debug.idle_timeout", d.IdleTimeout, time.Minute)
	if err != nil {
		return debughttp.Config{}, err
	}
	return debughttp.Config{
		Enabled:              d.Enabled,
		Addr:                 d.Addr,
		Prefix:               d.Prefix,
		Token:                d.Token,
		AllowInsecure:        d.AllowInsecure,
		ReadTimeout:          rt,
		WriteTimeout:         wt,
		IdleTimeout:          it,
		MutexProfileFraction: d.MutexProfileFraction,
		BlockProfileRate:     d.BlockProfileRate,
		MemProfileRate:       d.MemProfileRate,
	}, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg.Pool.MaxWorkingThreads < -1 {
		return fmt.Errorf("pool.max_working_threads must be >= -1")
	}
	if cfg.Pool.QueueCapacity < 0 {
		return fmt.Errorf("pool.queue_capacity must be >= 0")
	}
	if _, err := config.ParseDurationOrDefault("comm.socket_timeout", cfg.Comm.SocketTimeout, 0); err != nil {
		return err
	}
	if _, err := config.ParseDurationOrDefault("time.period", cfg.Time.Period, 0); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Time.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("time.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, _, err := mapHistoryConfig(cfg); err != nil {
		return err
	}
	if _, err := mapDebugConfig(cfg); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return fmt.Errorf("jobs[%d]: name required", i)
		}
		if seen[name] {
			return fmt.Errorf("jobs[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if !j.Enabled {
			continue
		}
		if _, err := periodic.ParseSchedule(j.Schedule); err != nil {
			return fmt.Errorf("jobs[%d] %q: %w", i, name, err)
		}
	}
	return nil
}
