// Package audit provides tests for the audit logging components.
package audit

import (
	"encoding/json"
	"testing"
	"time"

	"skypath/pkg/config"
)

// TestNewEntry verifies that the Builder correctly constructs an Entry with all fields set.
func TestNewEntry(t *testing.T) {
	entry := NewEntry().
		Service("skypath-planner").
		Method("POST /api/v1/routes").
		Action(ActionPlan).
		Outcome(OutcomeSuccess).
		User("42", "alice").
		Client("127.0.0.1", "test-agent").
		Resource("route", "A-E").
		RequestID("req-789").
		Duration(100*time.Millisecond).
		Meta("arrival", 14.0).
		Build()

	if entry.Service != "skypath-planner" {
		t.Errorf("expected service 'skypath-planner', got %s", entry.Service)
	}
	if entry.Method != "POST /api/v1/routes" {
		t.Errorf("unexpected method %s", entry.Method)
	}
	if entry.Action != ActionPlan {
		t.Errorf("expected action PLAN, got %s", entry.Action)
	}
	if entry.Outcome != OutcomeSuccess {
		t.Errorf("expected outcome SUCCESS, got %s", entry.Outcome)
	}
	if entry.UserID != "42" || entry.Username != "alice" {
		t.Errorf("unexpected user %s/%s", entry.UserID, entry.Username)
	}
	if entry.ClientIP != "127.0.0.1" || entry.UserAgent != "test-agent" {
		t.Errorf("unexpected client %s/%s", entry.ClientIP, entry.UserAgent)
	}
	if entry.Resource != "route" || entry.ResourceID != "A-E" {
		t.Errorf("unexpected resource %s/%s", entry.Resource, entry.ResourceID)
	}
	if entry.RequestID != "req-789" {
		t.Errorf("expected requestID 'req-789', got %s", entry.RequestID)
	}
	if entry.DurationMs != 100 {
		t.Errorf("expected durationMs 100, got %d", entry.DurationMs)
	}
	if entry.Metadata["arrival"] != 14.0 {
		t.Errorf("expected metadata arrival=14, got %v", entry.Metadata["arrival"])
	}
	if entry.ID == "" {
		t.Error("expected generated ID")
	}
}

// TestBuilder_Error verifies that failure details are recorded.
func TestBuilder_Error(t *testing.T) {
	entry := NewEntry().
		Action(ActionLogin).
		Outcome(OutcomeDenied).
		Error("UNAUTHENTICATED", "invalid credentials").
		Build()

	if entry.ErrorCode != "UNAUTHENTICATED" {
		t.Errorf("expected error code UNAUTHENTICATED, got %s", entry.ErrorCode)
	}
	if entry.ErrorMessage != "invalid credentials" {
		t.Errorf("unexpected error message %s", entry.ErrorMessage)
	}
}

// TestEntry_MarshalJSON verifies the JSON round trip of an Entry.
func TestEntry_MarshalJSON(t *testing.T) {
	entry := NewEntry().
		Service("svc").
		Action(ActionSaveTrip).
		Outcome(OutcomeSuccess).
		Resource("trip", "3f1c").
		Build()

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Action != entry.Action {
		t.Errorf("expected action %s, got %s", entry.Action, decoded.Action)
	}
	if decoded.ResourceID != "3f1c" {
		t.Errorf("expected resource id 3f1c, got %s", decoded.ResourceID)
	}
}

// TestDefaultConfig verifies that DefaultConfig returns a Config with expected default values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("expected enabled to be true by default")
	}
	if cfg.Backend != "stdout" {
		t.Errorf("expected backend 'stdout', got %s", cfg.Backend)
	}
	if cfg.BufferSize != 1000 {
		t.Errorf("expected buffer size 1000, got %d", cfg.BufferSize)
	}
	if cfg.FlushPeriod != 5*time.Second {
		t.Errorf("expected flush period 5s, got %v", cfg.FlushPeriod)
	}
	if len(cfg.MaskFields) == 0 {
		t.Error("expected mask fields to be set")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(&config.AuditConfig{
		Enabled:        true,
		Backend:        "file",
		FilePath:       "/tmp/audit.log",
		ExcludeActions: []string{"READ"},
	})

	if cfg.Backend != "file" || cfg.FilePath != "/tmp/audit.log" {
		t.Errorf("unexpected backend settings %+v", cfg)
	}
	if cfg.BufferSize != 1000 {
		t.Errorf("zero buffer size should keep default, got %d", cfg.BufferSize)
	}
	if len(cfg.ExcludeActions) != 1 {
		t.Errorf("expected exclude actions to be copied")
	}

	if got := FromConfig(nil); !got.Enabled {
		t.Error("nil config should yield defaults")
	}
}

// TestQueryFilter_Match verifies every criterion of the filter.
func TestQueryFilter_Match(t *testing.T) {
	now := time.Now()
	entry := &Entry{
		Timestamp: now,
		Service:   "svc",
		Action:    ActionPlan,
		Outcome:   OutcomeSuccess,
		UserID:    "7",
		Resource:  "route",
	}

	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	tests := []struct {
		name   string
		filter *QueryFilter
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", &QueryFilter{}, true},
		{"action match", &QueryFilter{Action: ActionPlan}, true},
		{"action mismatch", &QueryFilter{Action: ActionLogin}, false},
		{"user mismatch", &QueryFilter{UserID: "8"}, false},
		{"time window", &QueryFilter{StartTime: &before, EndTime: &after}, true},
		{"end is exclusive", &QueryFilter{EndTime: &now}, false},
		{"resource mismatch", &QueryFilter{Resource: "trip"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(entry); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMask(t *testing.T) {
	entry := NewEntry().Meta("password", "hunter2").Meta("route", "A → E").Build()

	masked := mask(entry, []string{"password"})
	if masked.Metadata["password"] != "***" {
		t.Errorf("password should be masked, got %v", masked.Metadata["password"])
	}
	if masked.Metadata["route"] != "A → E" {
		t.Error("other metadata must be kept")
	}
	if entry.Metadata["password"] != "hunter2" {
		t.Error("original entry must not be modified")
	}
}
