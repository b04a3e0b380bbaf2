package middleware

import (
	"net/http"

	"skypath/pkg/logger"
)

// RequestID присваивает запросу идентификатор (из заголовка или новый),
// возвращает его клиенту и кладёт в контекст логгер с request_id.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = GenerateRequestID()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := WithRequestID(r.Context(), id)
			ctx = logger.IntoContext(ctx, logger.WithRequestID(id))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
