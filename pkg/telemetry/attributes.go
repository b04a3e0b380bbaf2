package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Сеть рейсов
	AttrNetworkAirports    = "network.airports"
	AttrNetworkFlights     = "network.flights"
	AttrNetworkFingerprint = "network.fingerprint"

	// Запрос маршрута
	AttrRouteSource      = "route.source"
	AttrRouteDestination = "route.destination"
	AttrRouteStart       = "route.start"

	// Результат поиска
	AttrRouteFound   = "route.found"
	AttrRouteArrival = "route.arrival"
	AttrRouteLegs    = "route.legs"
	AttrRouteCached  = "route.cached"
	AttrSearchPops   = "search.pops"

	// Задержки
	AttrDelayMinutes  = "delay.total_minutes"
	AttrDelayFallback = "delay.fallback"
)

// NetworkAttributes возвращает атрибуты сети
func NetworkAttributes(airports, flights int, fingerprint string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkAirports, airports),
		attribute.Int(AttrNetworkFlights, flights),
		attribute.String(AttrNetworkFingerprint, fingerprint),
	}
}

// QueryAttributes возвращает атрибуты запроса маршрута
func QueryAttributes(source, destination string, start float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRouteSource, source),
		attribute.String(AttrRouteDestination, destination),
		attribute.Float64(AttrRouteStart, start),
	}
}

// ResultAttributes возвращает атрибуты результата поиска.
// Для ненайденного маршрута arrival не пишется: +Inf не сериализуется в OTLP.
func ResultAttributes(found bool, arrival float64, legs, pops int, cached bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrRouteFound, found),
		attribute.Int(AttrRouteLegs, legs),
		attribute.Int(AttrSearchPops, pops),
		attribute.Bool(AttrRouteCached, cached),
	}
	if found {
		attrs = append(attrs, attribute.Float64(AttrRouteArrival, arrival))
	}
	return attrs
}

// DelayAttributes возвращает атрибуты оценки задержек
func DelayAttributes(totalMinutes int, fallback bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrDelayMinutes, totalMinutes),
		attribute.Bool(AttrDelayFallback, fallback),
	}
}
