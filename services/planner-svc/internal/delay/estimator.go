package delay

import (
	"context"
	"fmt"
	"math"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
)

// Estimator прогнозирует задержку выбранного рейса в минутах
type Estimator interface {
	Estimate(ctx context.Context, f *domain.Flight) (float64, error)
}

// EstimatorFunc адаптирует функцию к Estimator
type EstimatorFunc func(ctx context.Context, f *domain.Flight) (float64, error)

// Estimate реализует Estimator
func (fn EstimatorFunc) Estimate(ctx context.Context, f *domain.Flight) (float64, error) {
	return fn(ctx, f)
}

// ModelEstimator применяет LinearModel к признакам из FeatureSource
type ModelEstimator struct {
	model    *LinearModel
	features FeatureSource
}

// NewEstimator создаёт оценщик. nil features - таблица DefaultFeatures.
func NewEstimator(model *LinearModel, features FeatureSource) *ModelEstimator {
	if features == nil {
		features = DefaultFeatures()
	}
	return &ModelEstimator{model: model, features: features}
}

// Estimate реализует Estimator
func (e *ModelEstimator) Estimate(ctx context.Context, f *domain.Flight) (float64, error) {
	if f == nil {
		return 0, apperror.New(apperror.CodeNilInput, "flight is nil")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.model.Predict(FeaturesFor(e.features, f))
}

// Disabled всегда возвращает 0 минут
var Disabled Estimator = EstimatorFunc(func(context.Context, *domain.Flight) (float64, error) {
	return 0, nil
})

// Причины замены прогноза нулём
const (
	FallbackUnknownLabel = "unknown_label"
	FallbackError        = "error"
	FallbackPanic        = "panic"
	FallbackInvalid      = "invalid_value"
)

// SafeEstimator - граничная обёртка: ошибка или паника оценщика дают 0 минут
type SafeEstimator struct {
	next    Estimator
	metrics *metrics.Metrics
}

// Safe оборачивает est. Ошибка никогда не возвращается вызывающему.
func Safe(est Estimator, m *metrics.Metrics) *SafeEstimator {
	if est == nil {
		est = Disabled
	}
	return &SafeEstimator{next: est, metrics: m}
}

// Estimate реализует Estimator
func (s *SafeEstimator) Estimate(ctx context.Context, f *domain.Flight) (float64, error) {
	minutes, _ := s.Predict(ctx, f)
	return minutes, nil
}

// Predict возвращает прогноз и признак замены нулём
func (s *SafeEstimator) Predict(ctx context.Context, f *domain.Flight) (minutes float64, fallback bool) {
	var reason string
	var cause error

	defer func() {
		if r := recover(); r != nil {
			reason, cause = FallbackPanic, fmt.Errorf("panic: %v", r)
		}
		if reason == "" {
			s.metrics.RecordDelayPrediction(minutes)
			return
		}

		minutes, fallback = 0, true
		id := ""
		if f != nil {
			id = f.ID
		}
		logger.FromContext(ctx).Warn("Delay prediction failed, using 0",
			"flight_id", id,
			"reason", reason,
			"error", cause,
		)
		s.metrics.RecordDelayFallback(reason)
	}()

	v, err := s.next.Estimate(ctx, f)
	switch {
	case apperror.Is(err, apperror.CodeUnknownLabel):
		reason, cause = FallbackUnknownLabel, err
	case err != nil:
		reason, cause = FallbackError, err
	case v < 0 || math.IsNaN(v) || math.IsInf(v, 0):
		reason, cause = FallbackInvalid, fmt.Errorf("estimator returned %v", v)
	default:
		minutes = v
	}
	return minutes, false
}

// Minutes отбрасывает дробную часть прогноза
func Minutes(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Floor(v))
}
