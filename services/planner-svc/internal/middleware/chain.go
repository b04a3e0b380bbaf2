package middleware

import "net/http"

// Middleware - обёртка над http.Handler
type Middleware func(http.Handler) http.Handler

// Chain объединяет middleware: первый в списке становится внешним
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] == nil {
				continue
			}
			h = mws[i](h)
		}
		return h
	}
}
