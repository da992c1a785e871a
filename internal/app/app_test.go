package app

import (
	"strings"
	"testing"
	"time"

	"taskmill/internal/config"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		return &config.Config{
			Pool: config.PoolConfig{MaxWorkingThreads: 4},
			Time: config.TimeConfig{Period: "5m", Timezone: "UTC"},
			Jobs: []config.JobConfig{
				{Name: "pool.stats", Schedule: "*/5 * * * *", Enabled: true},
			},
		}
	}

	if err := validateConfig(base()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{"workers below -1", func(c *config.Config) { c.Pool.MaxWorkingThreads = -2 }, "max_working_threads"},
		{"negative queue", func(c *config.Config) { c.Pool.QueueCapacity = -1 }, "queue_capacity"},
		{"bad period", func(c *config.Config) { c.Time.Period = "soon" }, "time.period"},
		{"bad timezone", func(c *config.Config) { c.Time.Timezone = "Mars/Olympus" }, "timezone"},
		{"empty job name", func(c *config.Config) { c.Jobs[0].Name = " " }, "name required"},
		{"bad job schedule", func(c *config.Config) { c.Jobs[0].Schedule = "whenever" }, "pool.stats"},
		{"duplicate job", func(c *config.Config) {
			c.Jobs = append(c.Jobs, config.JobConfig{Name: "pool.stats", Schedule: "10m"})
		}, "duplicate"},
		{"bad history timeout", func(c *config.Config) {
			c.History = &config.HistoryConfig{Driver: "sqlite", Path: "x", BusyTimeout: "later"}
		}, "busy_timeout"},
		{"bad debug timeout", func(c *config.Config) {
			c.Debug = &config.DebugConfig{Enabled: true, ReadTimeout: "fast"}
		}, "read_timeout"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(cfg)
			err := validateConfig(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidateConfigIgnoresDisabledJobSchedules(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Jobs: []config.JobConfig{
			{Name: "history.prune", Schedule: "not-a-schedule", Enabled: false},
		},
	}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("disabled job schedule validated: %v", err)
	}
}

func TestMapHistoryConfig(t *testing.T) {
	t.Parallel()

	if _, enabled, err := mapHistoryConfig(&config.Config{}); err != nil || enabled {
		t.Fatalf("nil history: enabled=%v err=%v", enabled, err)
	}

	cfg := &config.Config{History: &config.HistoryConfig{
		Driver:      "sqlite",
		Path:        "./hist.db",
		BusyTimeout: "250ms",
		MaxRecords:  50,
	}}
	hc, enabled, err := mapHistoryConfig(cfg)
	if err != nil || !enabled {
		t.Fatalf("enabled=%v err=%v", enabled, err)
	}
	if hc.Driver != "sqlite" || hc.BusyTimeout != 250*time.Millisecond || hc.MaxRecords != 50 {
		t.Fatalf("mapped config = %+v", hc)
	}
}

func TestMapDebugConfigDefaults(t *testing.T) {
	t.Parallel()

	dc, err := mapDebugConfig(&config.Config{Debug: &config.DebugConfig{Enabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	if !dc.Enabled {
		t.Fatal("enabled flag lost")
	}
	if dc.ReadTimeout != 5*time.Second || dc.WriteTimeout != 30*time.Second || dc.IdleTimeout != time.Minute {
		t.Fatalf("defaults = %+v", dc)
	}

	dc, err = mapDebugConfig(&config.Config{})
	if err != nil || dc.Enabled {
		t.Fatalf("nil debug section: %+v err=%v", dc, err)
	}
}
