package middleware

import (
	"net/http"
	"runtime/debug"

	"skypath/pkg/apperror"
	"skypath/pkg/logger"
)

// Recovery перехватывает панику обработчика и отвечает 500
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.FromContext(r.Context()).Error("Panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSONError(w, http.StatusInternalServerError,
					string(apperror.CodeInternal), "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
