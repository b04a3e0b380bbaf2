package domain

import "math"

// NetworkStatistics статистика сети рейсов
type NetworkStatistics struct {
	VertexCount       int      `json:"vertex_count"`
	FlightCount       int      `json:"flight_count"`
	RouteCount        int      `json:"route_count"`
	EarliestDeparture float64  `json:"earliest_departure"`
	LatestArrival     float64  `json:"latest_arrival"`
	AverageDuration   float64  `json:"average_duration"`
	MaxDuration       float64  `json:"max_duration"`
	MaxOutDegree      int      `json:"max_out_degree"`
	Busiest           string   `json:"busiest,omitempty"`
	Isolated          []string `json:"isolated,omitempty"`
	SelfLoops         int      `json:"self_loops"`
}

// CalculateStatistics вычисляет статистику сети
func CalculateStatistics(n *Network) *NetworkStatistics {
	stats := &NetworkStatistics{
		VertexCount: n.VertexCount(),
		FlightCount: n.FlightCount(),
		RouteCount:  len(n.adjSet),
	}

	if stats.FlightCount == 0 {
		stats.Isolated = n.Vertices()
		return stats
	}

	stats.EarliestDeparture = math.Inf(1)
	stats.LatestArrival = math.Inf(-1)

	var total float64
	for _, f := range n.flights {
		d := f.Duration()
		total += d
		if d > stats.MaxDuration {
			stats.MaxDuration = d
		}
		if f.Departure < stats.EarliestDeparture {
			stats.EarliestDeparture = f.Departure
		}
		if f.Arrival > stats.LatestArrival {
			stats.LatestArrival = f.Arrival
		}
		if f.Origin == f.Dest {
			stats.SelfLoops++
		}
	}
	stats.AverageDuration = total / float64(stats.FlightCount)

	// Vertices() отсортирован, поэтому Busiest детерминирован
	for _, v := range n.Vertices() {
		deg := n.OutDegree(v)
		if deg > stats.MaxOutDegree {
			stats.MaxOutDegree = deg
			stats.Busiest = v
		}
		if deg == 0 && n.InboundFlights(v) == 0 {
			stats.Isolated = append(stats.Isolated, v)
		}
	}

	return stats
}

// Reachable возвращает аэропорты, достижимые из source без учёта расписания
func Reachable(n *Network, source string) map[string]bool {
	visited := map[string]bool{source: true}
	queue := []string{source}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range n.Neighbors(u) {
			if visited[v] {
				continue
			}
			visited[v] = true
			queue = append(queue, v)
		}
	}

	return visited
}
