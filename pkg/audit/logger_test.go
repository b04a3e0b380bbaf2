// Package audit provides tests for various audit logger implementations.
package audit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skypath/pkg/logger"
)

// init sets up the global logger for testing purposes, suppressing informational logs.
func init() {
	logger.Init("error")
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&Config{Enabled: true, MaskFields: []string{"password"}}, &buf)
	defer l.Close()

	entry := NewEntry().
		Service("test").
		Action(ActionRegister).
		Outcome(OutcomeSuccess).
		Meta("password", "secret").
		Build()

	if err := l.Log(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "[AUDIT] ") {
		t.Errorf("expected [AUDIT] prefix, got %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Error("masked field leaked into audit output")
	}
}

// TestStdoutLogger_Disabled ensures that StdoutLogger does not log when disabled.
func TestStdoutLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&Config{Enabled: false}, &buf)

	if err := l.Log(context.Background(), NewEntry().Build()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Error("disabled logger must not write")
	}
}

// TestStdoutLogger_Query verifies that Query operations are not supported by StdoutLogger.
func TestStdoutLogger_Query(t *testing.T) {
	l := NewStdoutLogger(&Config{Enabled: true})
	defer l.Close()

	_, err := l.Query(context.Background(), &QueryFilter{})
	if err == nil {
		t.Error("expected error for query on stdout logger")
	}
}

// TestFileLogger verifies that FileLogger correctly writes audit entries to a file.
func TestFileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	cfg := &Config{
		Enabled:     true,
		Backend:     "file",
		FilePath:    logPath,
		BufferSize:  100,
		FlushPeriod: 50 * time.Millisecond,
	}

	l, err := NewFileLogger(cfg)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}

	entry := NewEntry().
		Service("test").
		Action(ActionSaveTrip).
		Outcome(OutcomeSuccess).
		Build()

	if err := l.Log(context.Background(), entry); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Close drains the buffer
	if err := l.Close(); err != nil {
		t.Errorf("failed to close logger: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("SAVE_TRIP")) {
		t.Errorf("expected log file to contain the entry, got %q", data)
	}
}

func TestFileLogger_BadPath(t *testing.T) {
	_, err := NewFileLogger(&Config{Enabled: true, FilePath: filepath.Join(t.TempDir(), "missing", "dir", "audit.log")})
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestMemoryLogger_Query(t *testing.T) {
	l := NewMemoryLogger(3)
	ctx := context.Background()

	base := time.Now()
	for i, a := range []Action{ActionLogin, ActionPlan, ActionPlan, ActionSaveTrip} {
		e := NewEntry().Action(a).User("1", "u").Build()
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := l.Log(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := l.Query(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("capacity 3 should evict the oldest entry, got %d", len(all))
	}
	if all[0].Action != ActionSaveTrip {
		t.Errorf("newest entry first, got %s", all[0].Action)
	}

	plans, _ := l.Query(ctx, &QueryFilter{Action: ActionPlan, Limit: 1})
	if len(plans) != 1 {
		t.Errorf("limit should cap results, got %d", len(plans))
	}

	none, _ := l.Query(ctx, &QueryFilter{Offset: 10})
	if len(none) != 0 {
		t.Errorf("offset past the end should return nothing, got %d", len(none))
	}
}

func TestWithExcludedActions(t *testing.T) {
	mem := NewMemoryLogger(10)
	l := WithExcludedActions(mem, []string{string(ActionRead)})
	ctx := context.Background()

	_ = l.Log(ctx, NewEntry().Action(ActionRead).Build())
	_ = l.Log(ctx, NewEntry().Action(ActionPlan).Build())

	got, _ := mem.Query(ctx, nil)
	if len(got) != 1 || got[0].Action != ActionPlan {
		t.Errorf("READ should be filtered out, got %v", got)
	}

	if WithExcludedActions(mem, nil) != Logger(mem) {
		t.Error("empty exclusion list should return the logger itself")
	}
}

// TestNew verifies that the New function correctly instantiates different logger backends.
func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false}},
		{"stdout backend", &Config{Enabled: true, Backend: "stdout"}},
		{"memory backend", &Config{Enabled: true, Backend: "memory"}},
		{"noop backend", &Config{Enabled: true, Backend: "noop"}},
		{"unknown backend defaults to stdout", &Config{Enabled: true, Backend: "unknown"}},
		{"file backend", &Config{Enabled: true, Backend: "file", FilePath: filepath.Join(t.TempDir(), "a.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if l == nil {
				t.Fatal("expected logger to be non-nil")
			}
			_ = l.Close()
		})
	}
}

// TestNoopLogger verifies that NoopLogger implements Logger without side effects.
func TestNoopLogger(t *testing.T) {
	l := &NoopLogger{}

	if err := l.Log(context.Background(), &Entry{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	entries, err := l.Query(context.Background(), &QueryFilter{})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if entries != nil {
		t.Error("expected nil entries")
	}

	if err := l.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestGlobalLogger verifies the functionality of setting and getting the global logger instance.
func TestGlobalLogger(t *testing.T) {
	original := Get()
	defer SetGlobal(original)

	mem := NewMemoryLogger(10)
	SetGlobal(mem)

	if Get() != Logger(mem) {
		t.Error("expected global logger to be updated")
	}

	if err := Log(context.Background(), NewEntry().Action(ActionRead).Build()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	got, _ := mem.Query(context.Background(), nil)
	if len(got) != 1 {
		t.Errorf("expected the global log call to reach the memory logger, got %d", len(got))
	}
}
