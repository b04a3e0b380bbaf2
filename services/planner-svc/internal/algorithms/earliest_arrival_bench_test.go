package algorithms

import (
	"context"
	"fmt"
	"testing"

	"skypath/pkg/domain"
)

// generateGridNetwork создаёт сетку n x n аэропортов. Из каждого аэропорта
// каждый час отправляются рейсы вправо и вниз, длительность 1-2 часа.
func generateGridNetwork(n int) *domain.Network {
	net := domain.NewNetwork()
	name := func(i, j int) string { return fmt.Sprintf("G%d_%d", i, j) }
	id := 0
	add := func(from, to string, dep float64, dur float64) {
		id++
		net.AddFlight(fmt.Sprintf("GF-%d", id), from, to, dep, dep+dur)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for h := 0; h < 24; h += 3 {
				if j < n-1 {
					add(name(i, j), name(i, j+1), float64(h), float64(1+(i+j)%2))
				}
				if i < n-1 {
					add(name(i, j), name(i+1, j), float64(h), float64(1+(i*j)%2))
				}
			}
		}
	}
	return net
}

func BenchmarkEarliestArrival_Grid(b *testing.B) {
	for _, size := range []int{10, 30, 60} {
		n := generateGridNetwork(size)
		q := Query{
			Source:      "G0_0",
			Destination: fmt.Sprintf("G%d_%d", size-1, size-1),
			Start:       0,
		}

		b.Run(fmt.Sprintf("grid_%dx%d", size, size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := EarliestArrival(context.Background(), n, q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearch_NoEarlyStop(b *testing.B) {
	n := generateGridNetwork(30)
	// недостижимая цель: поиск обходит всю сеть
	n.AddVertex("ISLAND")
	q := Query{Source: "G0_0", Destination: "ISLAND", Start: 0}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(context.Background(), n, q); err != nil {
			b.Fatal(err)
		}
	}
}
