package domain

import (
	"fmt"
	"math"
	"sort"

	"skypath/pkg/apperror"
)

// Flight - рейс, ребро сети с расписанием.
// Departure и Arrival в одних единицах (час суток).
type Flight struct {
	ID        string  `json:"id"`
	Origin    string  `json:"origin"`
	Dest      string  `json:"dest"`
	Departure float64 `json:"departure"`
	Arrival   float64 `json:"arrival"`

	// Index - порядковый номер добавления в сеть, используется для tie-break
	Index int `json:"-"`
}

// Duration возвращает длительность рейса
func (f *Flight) Duration() float64 {
	return f.Arrival - f.Departure
}

// String возвращает строковое представление рейса
func (f *Flight) String() string {
	return fmt.Sprintf("%s: %s → %s | Departs at %s, Arrives at %s",
		f.ID, f.Origin, f.Dest, FormatHour(f.Departure), FormatHour(f.Arrival))
}

// EdgeKey ключ пары (origin, dest)
type EdgeKey struct {
	From string
	To   string
}

// String возвращает строковое представление ключа
func (e EdgeKey) String() string {
	return e.From + "->" + e.To
}

// Network - сеть аэропортов и рейсов.
//
// Network не потокобезопасна: мутации должны быть сериализованы вызывающей
// стороной относительно запросов, которые читают сеть.
type Network struct {
	vertices  map[string]struct{}
	order     []string
	adjacency map[string][]string
	adjSet    map[EdgeKey]struct{}
	between   map[EdgeKey][]*Flight
	flights   []*Flight
	byID      map[string]*Flight
	inbound   map[string]int
}

// NewNetwork создаёт пустую сеть
func NewNetwork() *Network {
	return &Network{
		vertices:  make(map[string]struct{}),
		adjacency: make(map[string][]string),
		adjSet:    make(map[EdgeKey]struct{}),
		between:   make(map[EdgeKey][]*Flight),
		byID:      make(map[string]*Flight),
		inbound:   make(map[string]int),
	}
}

// AddVertex регистрирует аэропорт. Повторное добавление - no-op.
func (n *Network) AddVertex(name string) error {
	if name == "" {
		return apperror.NewWithField(apperror.CodeInvalidVertex, "vertex name is empty", "name")
	}
	if _, ok := n.vertices[name]; ok {
		return nil
	}
	n.vertices[name] = struct{}{}
	n.order = append(n.order, name)
	return nil
}

// AddFlight валидирует и добавляет рейс. Аэропорты регистрируются неявно.
func (n *Network) AddFlight(id, origin, dest string, departure, arrival float64) (*Flight, error) {
	if id == "" {
		return nil, apperror.NewWithField(apperror.CodeInvalidFlight, "flight id is empty", "id")
	}
	if !isFinite(departure) || !isFinite(arrival) {
		return nil, apperror.Newf(apperror.CodeInvalidFlight,
			"flight %s: departure and arrival must be finite", id).WithField("departure")
	}
	if arrival < departure {
		return nil, apperror.Newf(apperror.CodeInvalidFlight,
			"flight %s: arrival %g is earlier than departure %g", id, arrival, departure).
			WithField("arrival").
			WithDetails("flight_id", id)
	}
	if _, ok := n.byID[id]; ok {
		return nil, apperror.Newf(apperror.CodeDuplicateFlight, "flight %s already exists", id).
			WithField("id")
	}
	if err := n.AddVertex(origin); err != nil {
		return nil, err
	}
	if err := n.AddVertex(dest); err != nil {
		return nil, err
	}

	f := &Flight{
		ID:        id,
		Origin:    origin,
		Dest:      dest,
		Departure: departure,
		Arrival:   arrival,
		Index:     len(n.flights),
	}

	key := EdgeKey{From: origin, To: dest}
	if _, ok := n.adjSet[key]; !ok {
		n.adjSet[key] = struct{}{}
		n.adjacency[origin] = append(n.adjacency[origin], dest)
	}
	n.between[key] = append(n.between[key], f)
	n.flights = append(n.flights, f)
	n.byID[id] = f
	n.inbound[dest]++

	return f, nil
}

// Neighbors возвращает аэропорты, достижимые хотя бы одним рейсом из vertex,
// в порядке появления первого рейса.
func (n *Network) Neighbors(vertex string) []string {
	return n.adjacency[vertex]
}

// FlightsBetween возвращает рейсы origin -> dest в порядке добавления
func (n *Network) FlightsBetween(origin, dest string) []*Flight {
	return n.between[EdgeKey{From: origin, To: dest}]
}

// HasVertex проверяет наличие аэропорта
func (n *Network) HasVertex(name string) bool {
	_, ok := n.vertices[name]
	return ok
}

// Vertices возвращает аэропорты, отсортированные по имени
func (n *Network) Vertices() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	sort.Strings(out)
	return out
}

// Flights возвращает все рейсы в порядке добавления
func (n *Network) Flights() []*Flight {
	return n.flights
}

// Flight возвращает рейс по идентификатору
func (n *Network) Flight(id string) (*Flight, bool) {
	f, ok := n.byID[id]
	return f, ok
}

// VertexCount возвращает количество аэропортов
func (n *Network) VertexCount() int {
	return len(n.vertices)
}

// FlightCount возвращает количество рейсов
func (n *Network) FlightCount() int {
	return len(n.flights)
}

// OutDegree возвращает число различных направлений из vertex
func (n *Network) OutDegree(vertex string) int {
	return len(n.adjacency[vertex])
}

// InboundFlights возвращает число рейсов, прилетающих в vertex
func (n *Network) InboundFlights(vertex string) int {
	return n.inbound[vertex]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
