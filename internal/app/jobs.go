package app

import (
	"context"
	"strings"
	"time"

	"taskmill/internal/config"
	"taskmill/internal/periodic"
	logx "taskmill/pkg/logx"
)

// housekeepingJob is the built-in maintenance job armed from time.period.
const housekeepingJob = "time.housekeeping"

// builtinAction resolves a config job name to an action. Config jobs only
// name work the daemon already knows how to do; arbitrary callables enter
// the pool through the programmatic API instead.
func (a *App) builtinAction(name string) periodic.Action {
	switch name {
	case "pool.stats":
		return a.logPoolStats
	case "history.prune":
		return a.pruneHistory
	default:
		return nil
	}
}

func (a *App) logPoolStats(ctx context.Context) error {
	st := a.pool.Stats()
	a.log.Info("pool stats",
		logx.Int("workers", st.Workers),
		logx.Uint64("submitted", st.Submitted),
		logx.Uint64("completed", st.Completed),
		logx.Uint64("failed", st.Failed),
		logx.Uint64("dropped", st.Dropped),
		logx.Uint64("stolen", st.Stolen),
		logx.Int64("in_flight", st.InFlight),
	)
	return nil
}

func (a *App) pruneHistory(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.store.Prune(pctx)
}

// housekeeping runs on the time.period tick: a stats line plus history
// retention, matching what the original daemon did on its timer.
func (a *App) housekeeping(ctx context.Context) error {
	if err := a.logPoolStats(ctx); err != nil {
		return err
	}
	return a.pruneHistory(ctx)
}

// applyJobs reconciles the periodic service against the config's job list.
// Jobs this app armed earlier but that are now absent or disabled are
// removed; everything else is upserted by name.
func (a *App) applyJobs(cfg *config.Config) {
	desired := make(map[string]bool, len(cfg.Jobs)+1)

	for _, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" || !j.Enabled {
			continue
		}
		run := a.builtinAction(name)
		if run == nil {
			a.log.Warn("unknown job; skipping", logx.String("job", name))
			continue
		}
		if err := a.per.Register(name, j.Schedule, run); err != nil {
			a.log.Warn("job registration failed", logx.String("job", name), logx.Err(err))
			continue
		}
		desired[name] = true
	}

	if period, err := config.ParseDurationOrDefault("time.period", cfg.Time.Period, 0); err != nil {
		a.log.Warn("invalid time.period; housekeeping disabled", logx.Err(err))
	} else if period > 0 {
		if err := a.per.Register(housekeepingJob, period.String(), a.housekeeping); err != nil {
			a.log.Warn("housekeeping registration failed", logx.Err(err))
		} else {
			desired[housekeepingJob] = true
		}
	}

	for name := range a.registered {
		if !desired[name] {
			a.per.Remove(name)
		}
	}
	a.registered = desired
}
