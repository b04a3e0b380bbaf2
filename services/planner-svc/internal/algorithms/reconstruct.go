package algorithms

import (
	"context"

	"skypath/pkg/domain"
)

// Reconstruct walks predecessor flights from destination back to source.
// It returns false when the chain is broken or longer than the number of
// recorded predecessors, which can only happen for inconsistent input.
func Reconstruct(pred map[string]*domain.Flight, source, destination string) (domain.Path, bool) {
	var reversed domain.Path
	current := destination

	for current != source {
		f, ok := pred[current]
		if !ok || len(reversed) >= len(pred) {
			return nil, false
		}
		reversed = append(reversed, f)
		current = f.Origin
	}

	path := make(domain.Path, len(reversed))
	for i, f := range reversed {
		path[len(reversed)-1-i] = f
	}
	return path, true
}

// Result - итог поиска маршрута.
// Found == false означает, что допустимой последовательности рейсов нет.
type Result struct {
	Found   bool
	Arrival float64
	Path    domain.Path
	Stats   Stats
}

// EarliestArrival runs Search and Reconstruct. "No route" is reported as a
// Result with Found == false and a nil error; errors are reserved for
// precondition violations and cancellation.
func EarliestArrival(ctx context.Context, n *domain.Network, q Query) (*Result, error) {
	sr, err := Search(ctx, n, q)
	if err != nil {
		return nil, err
	}

	notFound := &Result{Arrival: domain.Infinity, Stats: sr.Stats}

	arrival := sr.Label(q.Destination)
	if domain.IsInfinite(arrival) {
		return notFound, nil
	}

	path, ok := Reconstruct(sr.Predecessors, q.Source, q.Destination)
	if !ok {
		return notFound, nil
	}

	return &Result{
		Found:   true,
		Arrival: arrival,
		Path:    path,
		Stats:   sr.Stats,
	}, nil
}
