package middleware

import (
	"net/http"
	"time"

	"skypath/pkg/metrics"
)

// Metrics записывает метрики HTTP запросов и число активных запросов
func Metrics(m *metrics.Metrics, tracker *metrics.RequestTracker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RouteName(r)
			if tracker != nil {
				tracker.Start(route)
				defer tracker.End(route)
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
		})
	}
}
