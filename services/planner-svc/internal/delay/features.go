package delay

import "skypath/pkg/domain"

// Features - входные признаки модели задержки
type Features struct {
	Origin    string
	Dest      string
	Departure float64
	Day       string
	Weather   string
}

// Conditions - день недели и погода в аэропорту вылета
type Conditions struct {
	Day     string `koanf:"day"`
	Weather string `koanf:"weather"`
}

// FeatureSource выводит контекстные признаки рейса
type FeatureSource interface {
	Conditions(origin string) Conditions
}

// StaticFeatures - таблица условий по аэропорту вылета с запасным значением
type StaticFeatures struct {
	ByOrigin map[string]Conditions
	Fallback Conditions
}

// DefaultFeatures возвращает таблицу условий для демо-сети
func DefaultFeatures() *StaticFeatures {
	return &StaticFeatures{
		ByOrigin: map[string]Conditions{
			"A": {Day: "Mon", Weather: "Clear"},
			"B": {Day: "Tue", Weather: "Rain"},
			"C": {Day: "Wed", Weather: "Clear"},
			"D": {Day: "Thu", Weather: "Fog"},
			"E": {Day: "Fri", Weather: "Storm"},
		},
		Fallback: Conditions{Day: "Tue", Weather: "Clear"},
	}
}

// Conditions реализует FeatureSource
func (s *StaticFeatures) Conditions(origin string) Conditions {
	if c, ok := s.ByOrigin[origin]; ok {
		return c
	}
	return s.Fallback
}

// FeaturesFor собирает признаки рейса
func FeaturesFor(src FeatureSource, f *domain.Flight) Features {
	c := src.Conditions(f.Origin)
	return Features{
		Origin:    f.Origin,
		Dest:      f.Dest,
		Departure: f.Departure,
		Day:       c.Day,
		Weather:   c.Weather,
	}
}
