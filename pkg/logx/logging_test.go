package logx

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestEffectiveLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{name: "named level wins", cfg: Config{Level: "warn", Filter: 3}, want: zerolog.WarnLevel},
		{name: "filter 0 disables", cfg: Config{Filter: 0}, want: zerolog.Disabled},
		{name: "filter 1 info", cfg: Config{Filter: 1}, want: zerolog.InfoLevel},
		{name: "filter 2 debug", cfg: Config{Filter: 2}, want: zerolog.DebugLevel},
		{name: "filter 3 trace", cfg: Config{Filter: 3}, want: zerolog.TraceLevel},
		{name: "filter above 3 trace", cfg: Config{Filter: 9}, want: zerolog.TraceLevel},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := effectiveLevel(tt.cfg); got != tt.want {
				t.Fatalf("effectiveLevel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevelFallsBack(t *testing.T) {
	t.Parallel()
	if got := parseLevel("nonsense", zerolog.InfoLevel); got != zerolog.InfoLevel {
		t.Fatalf("parseLevel = %v, want info fallback", got)
	}
	if got := parseLevel(" Warning ", zerolog.InfoLevel); got != zerolog.WarnLevel {
		t.Fatalf("parseLevel = %v, want warn", got)
	}
}

func TestJournalVarName(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"worker", "WORKER"},
		{"in_flight", "IN_FLIGHT"},
		{"task.done", "TASK_DONE"},
		{"0bad", "BAD"},
		{"___", ""},
	}
	for _, tt := range tests {
		if got := journalVarName(tt.in); got != tt.want {
			t.Fatalf("journalVarName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatJournalJSON(t *testing.T) {
	t.Parallel()
	line := `{"level":"info","time":"2026-01-01T00:00:00Z","message":"pool started","workers":4}`
	msg, vars := formatJournalJSON([]byte(line + "\n"))
	if msg != "pool started" {
		t.Fatalf("msg = %q, want %q", msg, "pool started")
	}
	if vars["WORKERS"] != "4" {
		t.Fatalf("vars = %v, want WORKERS=4", vars)
	}
	if _, ok := vars["TIME"]; ok {
		t.Fatal("time field must not become a journal variable")
	}

	raw, vars := formatJournalJSON([]byte("  not json  "))
	if raw != "not json" || vars != nil {
		t.Fatalf("raw line = %q vars = %v, want trimmed text and nil vars", raw, vars)
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger must report IsZero")
	}
	l.Info("must not panic", String("k", "v"))
	if l.With(Int("n", 1)).IsZero() {
		// With() attaches fields, so the result is no longer zero.
		t.Fatal("With must produce a non-zero logger")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate = %q, want unchanged", got)
	}
	if got := truncate("abcdefghijklmnop", 13); got != "abcdefghij..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("short truncate = %q", got)
	}
}
