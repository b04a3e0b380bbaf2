package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"skypath/pkg/logger"
)

// Logging логирует HTTP запросы. Ответы 5xx пишутся с уровнем error,
// 4xx с уровнем warn.
func Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			fields := []any{
				"method", r.Method,
				"route", RouteName(r),
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if u, ok := GetUser(r.Context()); ok {
				fields = append(fields, "user_id", u.ID)
			}

			level := slog.LevelInfo
			msg := "Request completed"
			switch {
			case rec.status >= http.StatusInternalServerError:
				level, msg = slog.LevelError, "Request failed"
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.FromContext(r.Context()).Log(r.Context(), level, msg, fields...)
		})
	}
}
