// Package algorithms implements the earliest-arrival route search over a
// time-dependent flight network and the reconstruction of the flight sequence.
//
// # Thread Safety
//
// Search reads the network and allocates its own label and predecessor maps,
// so concurrent searches over the same *domain.Network are safe as long as
// nobody mutates the network meanwhile. The package holds no locks.
//
// # Determinism
//
// The heap breaks label ties by vertex name and flights are tie-broken by
// insertion index, so identical inputs always yield identical itineraries.
package algorithms

import (
	"container/heap"
	"context"
	"math"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
)

// =============================================================================
// Earliest-Arrival Search
// =============================================================================
//
// Label-setting variant of Dijkstra's algorithm for networks whose edges are
// scheduled flights. A flight may be taken only if it departs no earlier than
// the current label of its origin; the label of its destination then becomes
// the flight's arrival time.
//
// Time Complexity: O((V + F) log V) with a binary heap and lazy re-insertion
// Space Complexity: O(V + F) for the heap in the worst case
//
// Correctness relies on arrival >= departure >= label[origin], so a popped
// label can never be improved later.
// =============================================================================

// Query описывает запрос на поиск маршрута
type Query struct {
	Source      string
	Destination string
	Start       float64
}

// Stats содержит счётчики одного поиска
type Stats struct {
	Pops        int
	StalePops   int
	Relaxations int
	EarlyStop   bool
}

// SearchResult - метки и предшественники после поиска.
// Карты принадлежат одному запросу и не разделяются между запросами.
type SearchResult struct {
	Labels       map[string]float64
	Predecessors map[string]*domain.Flight
	Stats        Stats
}

// Label возвращает метку вершины (+Inf, если вершина не достигнута)
func (r *SearchResult) Label(v string) float64 {
	if l, ok := r.Labels[v]; ok {
		return l
	}
	return domain.Infinity
}

// queueItem - элемент кучи с меткой на момент вставки
type queueItem struct {
	vertex string
	label  float64
}

// labelQueue implements heap.Interface ordered by (label, vertex).
type labelQueue []queueItem

func (q labelQueue) Len() int { return len(q) }

func (q labelQueue) Less(i, j int) bool {
	if q[i].label != q[j].label {
		return q[i].label < q[j].label
	}
	return q[i].vertex < q[j].vertex
}

func (q labelQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *labelQueue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *labelQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ValidateQuery проверяет предусловия запроса до начала поиска
func ValidateQuery(n *domain.Network, q Query) error {
	if n == nil {
		return apperror.ErrNilNetwork
	}
	if !n.HasVertex(q.Source) {
		return apperror.Newf(apperror.CodeUnknownVertex, "source airport %q not in network", q.Source).
			WithField("source")
	}
	if !n.HasVertex(q.Destination) {
		return apperror.Newf(apperror.CodeUnknownVertex, "destination airport %q not in network", q.Destination).
			WithField("destination")
	}
	if q.Source == q.Destination {
		return apperror.ErrSourceEqualsDestination
	}
	// NaN-метка источника была бы пропущена как устаревшая
	if math.IsNaN(q.Start) || math.IsInf(q.Start, 0) || q.Start < 0 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"start time must be a finite non-negative instant, got %v", q.Start).WithField("start_time")
	}
	return nil
}

// Search executes the label-setting search and returns labels and predecessors.
// The search stops as soon as the destination is popped with its live label.
// A cancelled ctx aborts the search with a TIMEOUT error.
func Search(ctx context.Context, n *domain.Network, q Query) (*SearchResult, error) {
	if err := ValidateQuery(n, q); err != nil {
		return nil, err
	}

	vertices := n.Vertices()
	labels := make(map[string]float64, len(vertices))
	pred := make(map[string]*domain.Flight)

	pq := make(labelQueue, 0, len(vertices))
	for _, v := range vertices {
		labels[v] = domain.Infinity
		if v == q.Source {
			labels[v] = q.Start
		}
		pq = append(pq, queueItem{vertex: v, label: labels[v]})
	}
	heap.Init(&pq)

	var stats Stats

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, apperror.Wrap(ctx.Err(), apperror.CodeTimeout, "route search cancelled")
		default:
		}

		item := heap.Pop(&pq).(queueItem)
		stats.Pops++

		u := item.vertex
		// Skip stale entries (a better label was pushed later)
		if item.label != labels[u] {
			stats.StalePops++
			continue
		}
		if domain.IsInfinite(labels[u]) {
			// Every remaining entry is unreachable too
			break
		}
		if u == q.Destination {
			stats.EarlyStop = true
			break
		}

		for _, next := range n.Neighbors(u) {
			best := earliestFeasible(n.FlightsBetween(u, next), labels[u])
			if best == nil {
				continue
			}
			if best.Arrival < labels[next] {
				labels[next] = best.Arrival
				pred[next] = best
				heap.Push(&pq, queueItem{vertex: next, label: best.Arrival})
				stats.Relaxations++
			}
		}
	}

	return &SearchResult{
		Labels:       labels,
		Predecessors: pred,
		Stats:        stats,
	}, nil
}

// earliestFeasible выбирает рейс с минимальным прибытием среди вылетающих
// не раньше ready. При равном прибытии побеждает рейс, добавленный раньше.
func earliestFeasible(flights []*domain.Flight, ready float64) *domain.Flight {
	var best *domain.Flight
	for _, f := range flights {
		if f.Departure < ready {
			continue
		}
		if best == nil || f.Arrival < best.Arrival ||
			(f.Arrival == best.Arrival && f.Index < best.Index) {
			best = f
		}
	}
	return best
}
