package domain

import (
	"math"
	"testing"

	"skypath/pkg/apperror"
)

func TestNewNetwork(t *testing.T) {
	n := NewNetwork()

	if n == nil {
		t.Fatal("expected non-nil network")
	}
	if n.VertexCount() != 0 || n.FlightCount() != 0 {
		t.Errorf("expected empty network, got %d vertices, %d flights", n.VertexCount(), n.FlightCount())
	}
}

func TestNetwork_AddVertex(t *testing.T) {
	n := NewNetwork()

	if err := n.AddVertex("A"); err != nil {
		t.Fatalf("AddVertex failed: %v", err)
	}
	if err := n.AddVertex("A"); err != nil {
		t.Fatalf("duplicate AddVertex should be a no-op, got %v", err)
	}
	if n.VertexCount() != 1 {
		t.Errorf("VertexCount = %d, want 1", n.VertexCount())
	}

	err := n.AddVertex("")
	if !apperror.Is(err, apperror.CodeInvalidVertex) {
		t.Errorf("empty name: got %v, want INVALID_VERTEX", err)
	}
}

func TestNetwork_AddFlight(t *testing.T) {
	n := NewNetwork()

	f, err := n.AddFlight("F1", "A", "B", 2, 6)
	if err != nil {
		t.Fatalf("AddFlight failed: %v", err)
	}
	if f.Index != 0 {
		t.Errorf("Index = %d, want 0", f.Index)
	}
	if f.Duration() != 4 {
		t.Errorf("Duration = %v, want 4", f.Duration())
	}
	if !n.HasVertex("A") || !n.HasVertex("B") {
		t.Error("endpoints should be registered implicitly")
	}

	f2, _ := n.AddFlight("F2", "A", "B", 3, 7)
	if f2.Index != 1 {
		t.Errorf("second flight Index = %d, want 1", f2.Index)
	}
	if got := n.Neighbors("A"); len(got) != 1 || got[0] != "B" {
		t.Errorf("Neighbors(A) = %v, want [B]", got)
	}
}

func TestNetwork_AddFlight_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		dep, arr float64
		wantCode apperror.ErrorCode
	}{
		{"arrival before departure", "F1", 6, 2, apperror.CodeInvalidFlight},
		{"empty id", "", 2, 6, apperror.CodeInvalidFlight},
		{"NaN departure", "F1", math.NaN(), 6, apperror.CodeInvalidFlight},
		{"infinite arrival", "F1", 2, math.Inf(1), apperror.CodeInvalidFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNetwork()
			f, err := n.AddFlight(tt.id, "A", "B", tt.dep, tt.arr)
			if f != nil {
				t.Error("expected nil flight")
			}
			if !apperror.Is(err, tt.wantCode) {
				t.Errorf("got %v, want %s", err, tt.wantCode)
			}
			if n.FlightCount() != 0 {
				t.Error("rejected flight must not be added")
			}
			if len(n.Neighbors("A")) != 0 {
				t.Error("rejected flight must not change adjacency")
			}
		})
	}
}

func TestNetwork_AddFlight_ZeroDuration(t *testing.T) {
	n := NewNetwork()
	if _, err := n.AddFlight("F1", "A", "B", 5, 5); err != nil {
		t.Errorf("zero-duration flight should be accepted, got %v", err)
	}
}

func TestNetwork_AddFlight_Duplicate(t *testing.T) {
	n := NewNetwork()
	n.AddFlight("F1", "A", "B", 2, 6)

	_, err := n.AddFlight("F1", "B", "C", 7, 8)
	if !apperror.Is(err, apperror.CodeDuplicateFlight) {
		t.Errorf("got %v, want DUPLICATE_FLIGHT", err)
	}
	if n.HasVertex("C") {
		t.Error("rejected flight must not register its endpoints")
	}
}

func TestNetwork_FlightsBetween_InsertionOrder(t *testing.T) {
	n := NewNetwork()
	n.AddFlight("F3", "A", "B", 3, 6)
	n.AddFlight("F9", "B", "C", 1, 2)
	n.AddFlight("F1", "A", "B", 2, 6)

	got := n.FlightsBetween("A", "B")
	if len(got) != 2 {
		t.Fatalf("FlightsBetween = %d flights, want 2", len(got))
	}
	if got[0].ID != "F3" || got[1].ID != "F1" {
		t.Errorf("order = [%s %s], want [F3 F1]", got[0].ID, got[1].ID)
	}
	if len(n.FlightsBetween("B", "A")) != 0 {
		t.Error("reverse direction must be empty")
	}
}

func TestNetwork_Neighbors_FirstSeenOrder(t *testing.T) {
	n := NewNetwork()
	n.AddFlight("F1", "A", "C", 1, 2)
	n.AddFlight("F2", "A", "B", 1, 2)
	n.AddFlight("F3", "A", "C", 3, 4)

	got := n.Neighbors("A")
	if len(got) != 2 || got[0] != "C" || got[1] != "B" {
		t.Errorf("Neighbors(A) = %v, want [C B]", got)
	}
	if n.Neighbors("unknown") != nil {
		t.Error("unknown vertex has no neighbors")
	}
}

func TestNetwork_Lookups(t *testing.T) {
	n := NewNetwork()
	n.AddVertex("Z")
	n.AddFlight("F1", "B", "A", 1, 2)

	vs := n.Vertices()
	if len(vs) != 3 || vs[0] != "A" || vs[1] != "B" || vs[2] != "Z" {
		t.Errorf("Vertices = %v, want sorted [A B Z]", vs)
	}
	if f, ok := n.Flight("F1"); !ok || f.Origin != "B" {
		t.Errorf("Flight(F1) = %v, %v", f, ok)
	}
	if _, ok := n.Flight("missing"); ok {
		t.Error("missing flight should not be found")
	}
	if n.InboundFlights("A") != 1 || n.OutDegree("B") != 1 {
		t.Error("degree bookkeeping is wrong")
	}
}

func TestFlight_String(t *testing.T) {
	f := &Flight{ID: "FN-101", Origin: "A", Dest: "B", Departure: 2, Arrival: 6}
	want := "FN-101: A → B | Departs at 2:00, Arrives at 6:00"
	if f.String() != want {
		t.Errorf("String() = %q, want %q", f.String(), want)
	}
}
