package domain

import (
	"fmt"
	"strings"
)

// Path - упорядоченная последовательность рейсов от источника к назначению
type Path []*Flight

// Vertices возвращает последовательность аэропортов маршрута
func (p Path) Vertices() []string {
	if len(p) == 0 {
		return nil
	}
	out := make([]string, 0, len(p)+1)
	for _, f := range p {
		out = append(out, f.Origin)
	}
	return append(out, p[len(p)-1].Dest)
}

// Route возвращает маршрут в виде "A → B → D"
func (p Path) Route() string {
	return strings.Join(p.Vertices(), " → ")
}

// FlightIDs возвращает идентификаторы рейсов
func (p Path) FlightIDs() []string {
	ids := make([]string, len(p))
	for i, f := range p {
		ids[i] = f.ID
	}
	return ids
}

// Edges возвращает пары (origin, dest) для подсветки маршрута
func (p Path) Edges() []EdgeKey {
	edges := make([]EdgeKey, len(p))
	for i, f := range p {
		edges[i] = EdgeKey{From: f.Origin, To: f.Dest}
	}
	return edges
}

// Arrival возвращает время прибытия последнего рейса
func (p Path) Arrival() float64 {
	if len(p) == 0 {
		return Infinity
	}
	return p[len(p)-1].Arrival
}

// Validate проверяет, что маршрут связный, не нарушает расписание
// и не посещает вершину дважды.
func (p Path) Validate(source string, start float64) error {
	if len(p) == 0 {
		return fmt.Errorf("path is empty")
	}
	if p[0].Origin != source {
		return fmt.Errorf("path starts at %s, want %s", p[0].Origin, source)
	}
	if p[0].Departure < start {
		return fmt.Errorf("flight %s departs at %g before start %g", p[0].ID, p[0].Departure, start)
	}

	seen := map[string]bool{source: true}
	for i := 1; i < len(p); i++ {
		prev, cur := p[i-1], p[i]
		if prev.Dest != cur.Origin {
			return fmt.Errorf("flight %s ends at %s but %s starts at %s", prev.ID, prev.Dest, cur.ID, cur.Origin)
		}
		if cur.Departure < prev.Arrival {
			return fmt.Errorf("flight %s departs at %g before %s arrives at %g", cur.ID, cur.Departure, prev.ID, prev.Arrival)
		}
		if seen[cur.Origin] {
			return fmt.Errorf("vertex %s visited twice", cur.Origin)
		}
		seen[cur.Origin] = true
	}
	if last := p[len(p)-1].Dest; seen[last] {
		return fmt.Errorf("vertex %s visited twice", last)
	}
	return nil
}
