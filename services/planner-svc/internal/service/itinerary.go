package service

import (
	"fmt"
	"math"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
)

// Leg - рейс маршрута с прогнозом задержки
type Leg struct {
	Flight         *domain.Flight `json:"flight"`
	PredictedDelay float64        `json:"predicted_delay"`
	DelayMinutes   int            `json:"delay_minutes"`
	Delayed        bool           `json:"delayed"`
}

// Itinerary - результат планирования, передаваемый представлению и хранилищу
type Itinerary struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	StartTime   float64 `json:"start_time"`
	Found       bool    `json:"found"`

	// Arrival равен +Inf для ненайденного маршрута и в JSON не пишется
	Arrival float64 `json:"-"`

	Legs              []Leg  `json:"legs"`
	Route             string `json:"route,omitempty"`
	ArrivalClock      string `json:"arrival_clock,omitempty"`
	TotalDelayMinutes int    `json:"total_delay_minutes"`
	ArrivalWithDelay  string `json:"arrival_with_delay,omitempty"`
	DelayFallbacks    int    `json:"delay_fallbacks,omitempty"`

	Cached    bool   `json:"cached"`
	Saved     bool   `json:"saved"`
	SaveError string `json:"save_error,omitempty"`
	TripID    string `json:"trip_id,omitempty"`

	Stats SearchStats `json:"stats"`
}

// SearchStats - счётчики поиска для ответа API
type SearchStats struct {
	Pops        int  `json:"pops"`
	StalePops   int  `json:"stale_pops"`
	Relaxations int  `json:"relaxations"`
	EarlyStop   bool `json:"early_stop"`
}

// Path возвращает рейсы маршрута
func (it *Itinerary) Path() domain.Path {
	p := make(domain.Path, len(it.Legs))
	for i, l := range it.Legs {
		p[i] = l.Flight
	}
	return p
}

// FlightIDs возвращает идентификаторы рейсов маршрута
func (it *Itinerary) FlightIDs() []string {
	return it.Path().FlightIDs()
}

// ArrivalHours возвращает время прибытия, пригодное для JSON (0 для ненайденного маршрута)
func (it *Itinerary) ArrivalHours() float64 {
	if !it.Found {
		return 0
	}
	return it.Arrival
}

// Err возвращает NO_ROUTE для ненайденного маршрута
func (it *Itinerary) Err() error {
	if it.Found {
		return nil
	}
	return apperror.Newf(apperror.CodeNoRoute, "no valid flight path from %s to %s at %s",
		it.Source, it.Destination, domain.FormatHour(it.StartTime))
}

// FormatClock печатает прибытие с задержкой: час + floor(delay/60), минуты delay mod 60
func FormatClock(arrival float64, delayMinutes int) string {
	h, m := domain.AddDelay(arrival, delayMinutes)
	return fmt.Sprintf("%d:%02d", h, m)
}

// ValidateStartHour проверяет время старта: целый час от 0 до 23
func ValidateStartHour(start float64) error {
	if math.IsNaN(start) || start != math.Trunc(start) ||
		start < domain.MinStartHour || start > domain.MaxStartHour {
		return apperror.NewWithField(apperror.CodeInvalidStartTime,
			fmt.Sprintf("start time must be a whole hour between %d and %d", domain.MinStartHour, domain.MaxStartHour),
			"start_time")
	}
	return nil
}
