package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skypath/pkg/domain"
)

func TestReconstruct(t *testing.T) {
	f1 := &domain.Flight{ID: "F1", Origin: "A", Dest: "B", Departure: 2, Arrival: 6}
	f2 := &domain.Flight{ID: "F2", Origin: "B", Dest: "C", Departure: 9, Arrival: 10}

	path, ok := Reconstruct(map[string]*domain.Flight{"B": f1, "C": f2}, "A", "C")
	require.True(t, ok)
	assert.Equal(t, domain.Path{f1, f2}, path)
}

func TestReconstruct_BrokenChain(t *testing.T) {
	f2 := &domain.Flight{ID: "F2", Origin: "B", Dest: "C"}

	path, ok := Reconstruct(map[string]*domain.Flight{"C": f2}, "A", "C")
	assert.False(t, ok)
	assert.Nil(t, path)
}

func TestReconstruct_Cycle(t *testing.T) {
	// Inconsistent input: B and C point at each other and never reach A.
	pred := map[string]*domain.Flight{
		"B": {ID: "CB", Origin: "C", Dest: "B"},
		"C": {ID: "BC", Origin: "B", Dest: "C"},
	}

	_, ok := Reconstruct(pred, "A", "C")
	assert.False(t, ok)
}
