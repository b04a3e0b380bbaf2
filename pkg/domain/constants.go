package domain

import (
	"fmt"
	"math"
)

// Infinity - метка недостижимой вершины
var Infinity = math.Inf(1)

// Границы времени старта, принимаемые API и CLI
const (
	MinStartHour = 0
	MaxStartHour = 23
)

// Порог задержки, после которого рейс помечается как задержанный (минуты)
const DelayWarningMinutes = 10

// IsInfinite проверяет, что метка не была достигнута
func IsInfinite(v float64) bool {
	return math.IsInf(v, 1)
}

// FormatHour форматирует момент времени как "H:00" для целых часов
// и "H:MM" для дробных.
func FormatHour(h float64) string {
	if IsInfinite(h) {
		return "∞"
	}
	whole := math.Floor(h)
	minutes := int(math.Round((h - whole) * 60))
	if minutes == 60 {
		whole++
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", int(whole), minutes)
}

// AddDelay возвращает время прибытия с учётом задержки в минутах:
// arrival + floor(delay/60) часов и delay mod 60 минут.
func AddDelay(arrival float64, delayMinutes int) (hour, minute int) {
	hour = int(arrival) + delayMinutes/60
	minute = delayMinutes % 60
	return hour, minute
}
