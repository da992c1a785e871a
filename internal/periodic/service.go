// Package periodic triggers named jobs on cron or interval schedules and
// submits each firing to the work-stealing pool as a detached task. Triggering
// and execution are decoupled on purpose: the cron goroutine only enqueues,
// the pool's workers run the job bodies.
package periodic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskmill/pkg/pool"

	logx "taskmill/pkg/logx"
)

// Action is one job body. It receives the service's run context, which is
// canceled when the service stops.
type Action func(ctx context.Context) error

// Config controls the periodic service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local time
}

type runState struct {
	mu      sync.Mutex
	running bool
}

// tryAcquire marks the job running; false when a previous firing is still
// executing and the new one should be skipped.
func (r *runState) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *runState) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

type jobDef struct {
	name    string
	spec    string // cron spec or @every
	run     Action
	entryID cron.EntryID
	state   *runState
}

type Service struct {
	mu sync.Mutex

	log  logx.Logger
	cfg  Config
	pool *pool.Pool
	loc  *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []*jobDef

	runCtx    context.Context
	runCancel context.CancelFunc

	skipped uint64
}

func New(cfg Config, p *pool.Pool, log logx.Logger) *Service {
	return &Service{
		cfg:  cfg,
		pool: p,
		log:  log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Register adds or replaces a named job. Safe before or after Start; jobs
// registered before Start are armed when the service starts.
func (s *Service) Register(name, schedule string, run Action) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if run == nil {
		return errors.New("action required")
	}
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	spec := ps.Cron
	if ps.Kind == SpecInterval {
		spec = fmt.Sprintf("@every %s", ps.Every.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert by name to prevent duplicates across hot-reloads.
	s.removeLocked(name)
	d := &jobDef{name: name, spec: spec, run: run, state: &runState{}}
	s.defs = append(s.defs, d)
	if s.c != nil {
		if err := s.armLocked(d); err != nil {
			s.log.Error("job register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
			return err
		}
		s.log.Debug("job registered", logx.String("name", name), logx.String("spec", spec))
	}
	return nil
}

// Remove unschedules the named job. It reports whether anything was removed.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeLocked(name)
	s.mu.Unlock()
	if removed {
		s.log.Debug("job removed", logx.String("name", name))
	}
	return removed
}

// Names returns the registered job names.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d.name)
	}
	return out
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for _, d := range s.defs {
		if err := s.armLocked(d); err != nil {
			s.log.Error("job register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("periodic service started", logx.Int("jobs", len(s.defs)), logx.String("tz", loc.String()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	for _, d := range s.defs {
		d.entryID = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}

	// Wait for in-flight trigger callbacks, bounded by ctx. Job bodies keep
	// draining inside the pool; Close on the pool waits for those.
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("periodic service stopped")
}

// Apply updates the service config. A timezone change restarts the cron
// runner so existing schedules fire in the new location.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg
	if s.c == nil || oldTZ == newTZ {
		return
	}

	<-s.c.Stop().Done()
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for _, d := range s.defs {
		d.entryID = 0
		if err := s.armLocked(d); err != nil {
			s.log.Error("job re-register failed", logx.String("name", d.name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("periodic service restarted", logx.String("tz", loc.String()), logx.Int("jobs", len(s.defs)))
}

// armLocked registers d with the running cron instance. Call with s.mu held.
func (s *Service) armLocked(d *jobDef) error {
	runCtx := s.runCtx
	eid, err := s.c.AddFunc(d.spec, func() {
		if !d.state.tryAcquire() {
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			s.log.Debug("job skipped (previous run still running)", logx.String("job", d.name))
			return
		}
		s.pool.SubmitDetachedErr(func() error {
			defer d.state.release()
			start := time.Now()
			err := d.run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("job failed", logx.String("job", d.name), logx.Duration("took", time.Since(start)), logx.Err(err))
				return fmt.Errorf("%s: %w", d.name, err)
			}
			s.log.Debug("job ok", logx.String("job", d.name), logx.Duration("took", time.Since(start)))
			return nil
		})
	})
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) removeLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Snapshot reports registered jobs and their next firing times.
type Snapshot struct {
	Timezone string    `json:"timezone"`
	Skipped  uint64    `json:"skipped"`
	Jobs     []JobInfo `json:"jobs"`
}

type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitempty"`
	Prev time.Time `json:"prev,omitempty"`
}

func (s *Service) SnapshotNow() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Skipped: s.skipped}
	if s.loc != nil {
		snap.Timezone = s.loc.String()
	}
	for _, d := range s.defs {
		info := JobInfo{Name: d.name, Spec: d.spec}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			info.Next = e.Next
			info.Prev = e.Prev
		}
		snap.Jobs = append(snap.Jobs, info)
	}
	return snap
}
