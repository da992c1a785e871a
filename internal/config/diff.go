package config

import (
	"reflect"
	"sort"
	"strings"

	logx "taskmill/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging, and (3) a list of job names whose
// definition changed (added, removed, rescheduled, or toggled).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	// Server identity
	if strings.TrimSpace(oldCfg.Server.Name) != strings.TrimSpace(newCfg.Server.Name) ||
		strings.TrimSpace(oldCfg.Server.DisplayName) != strings.TrimSpace(newCfg.Server.DisplayName) ||
		oldCfg.Server.ListenerPort != newCfg.Server.ListenerPort ||
		strings.TrimSpace(oldCfg.Server.IPAddress) != strings.TrimSpace(newCfg.Server.IPAddress) {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.String("server.name", strings.TrimSpace(newCfg.Server.Name)),
			logx.Int("server.listener_port", newCfg.Server.ListenerPort),
		)
	}

	// Comm
	if oldCfg.Comm.Blocking != newCfg.Comm.Blocking ||
		strings.TrimSpace(oldCfg.Comm.SocketTimeout) != strings.TrimSpace(newCfg.Comm.SocketTimeout) {
		changed = append(changed, "comm")
		attrs = append(attrs,
			logx.Bool("comm.blocking", newCfg.Comm.Blocking),
			logx.String("comm.socket_timeout", strings.TrimSpace(newCfg.Comm.SocketTimeout)),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Filter != newCfg.Logging.Filter ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File != newCfg.Logging.File ||
		oldCfg.Logging.Journal != newCfg.Logging.Journal {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Int("logx.filter", newCfg.Logging.Filter),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.file_flush", newCfg.Logging.File.Flush),
			logx.Bool("logx.journal_enabled", newCfg.Logging.Journal.Enabled),
		)
	}

	// Housekeeping tick + timezone
	if strings.TrimSpace(oldCfg.Time.Period) != strings.TrimSpace(newCfg.Time.Period) ||
		strings.TrimSpace(oldCfg.Time.Timezone) != strings.TrimSpace(newCfg.Time.Timezone) {
		changed = append(changed, "time")
		attrs = append(attrs,
			logx.String("time.period", strings.TrimSpace(newCfg.Time.Period)),
			logx.String("time.timezone", strings.TrimSpace(newCfg.Time.Timezone)),
		)
	}

	// Pool. Worker count and pinning cannot change on a live pool; the
	// summary surfaces them so operators know a restart is needed.
	if oldCfg.Pool != newCfg.Pool {
		changed = append(changed, "pool")
		attrs = append(attrs,
			logx.Int("pool.max_working_threads", newCfg.Pool.MaxWorkingThreads),
			logx.Bool("pool.pin_os_threads", newCfg.Pool.PinOSThreads),
			logx.Int("pool.queue_capacity", newCfg.Pool.QueueCapacity),
		)
	}

	// History (persistence). Nil means disabled.
	oldH := oldCfg.History
	newH := newCfg.History
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	var oMax, nMax int
	if oldH != nil {
		oDriver = strings.TrimSpace(oldH.Driver)
		oBusy = strings.TrimSpace(oldH.BusyTimeout)
		oPathSet = strings.TrimSpace(oldH.Path) != ""
		oMax = oldH.MaxRecords
	}
	if newH != nil {
		nDriver = strings.TrimSpace(newH.Driver)
		nBusy = strings.TrimSpace(newH.BusyTimeout)
		nPathSet = strings.TrimSpace(newH.Path) != ""
		nMax = newH.MaxRecords
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet || oMax != nMax {
		changed = append(changed, "history")
		attrs = append(attrs,
			logx.String("history.driver", nDriver),
			logx.Bool("history.path_set", nPathSet),
			logx.String("history.busy_timeout", nBusy),
			logx.Int("history.max_records", nMax),
		)
	}

	// Debug endpoint. Token values never reach logs.
	oldD := oldCfg.Debug
	newD := newCfg.Debug
	var oEnabled, nEnabled bool
	var oAddr, nAddr string
	if oldD != nil {
		oEnabled = oldD.Enabled
		oAddr = strings.TrimSpace(oldD.Addr)
	}
	if newD != nil {
		nEnabled = newD.Enabled
		nAddr = strings.TrimSpace(newD.Addr)
	}
	if oEnabled != nEnabled || oAddr != nAddr || !reflect.DeepEqual(oldD, newD) {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", nEnabled),
			logx.String("debug.addr", nAddr),
		)
	}

	// Jobs (summarize only; details at debug)
	jobsChanged := diffJobs(oldCfg.Jobs, newCfg.Jobs)
	if len(jobsChanged) > 0 {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.changed_count", len(jobsChanged)),
			logx.Int("jobs.enabled_count", countEnabledJobs(newCfg.Jobs)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jobsChanged
}

func countEnabledJobs(jobs []JobConfig) int {
	n := 0
	for _, j := range jobs {
		if j.Enabled {
			n++
		}
	}
	return n
}

func diffJobs(oldJobs, newJobs []JobConfig) []string {
	oldM := make(map[string]JobConfig, len(oldJobs))
	for _, j := range oldJobs {
		oldM[j.Name] = j
	}
	newM := make(map[string]JobConfig, len(newJobs))
	for _, j := range newJobs {
		newM[j.Name] = j
	}

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, oOK := oldM[name]
		n, nOK := newM[name]
		if oOK != nOK || !reflect.DeepEqual(o, n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
