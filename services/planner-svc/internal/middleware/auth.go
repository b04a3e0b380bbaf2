package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"skypath/pkg/apperror"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/passhash"
)

// TokenValidator проверяет access token
type TokenValidator interface {
	ValidateAccessToken(token string) (*passhash.Claims, error)
}

// OptionalAuth добавляет пользователя в контекст, если запрос несёт
// Bearer токен. Запрос без токена пропускается анонимно, запрос с
// невалидным токеном отклоняется.
func OptionalAuth(v TokenValidator, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := extractToken(header)
			if !ok {
				m.RecordAuth("token", false)
				writeJSONError(w, http.StatusUnauthorized,
					string(apperror.CodeUnauthenticated), "malformed authorization header")
				return
			}

			claims, err := v.ValidateAccessToken(token)
			if err != nil {
				m.RecordAuth("token", false)
				logger.FromContext(r.Context()).Debug("Token validation failed", "error", err)
				writeJSONError(w, http.StatusUnauthorized,
					string(apperror.CodeUnauthenticated), "invalid token")
				return
			}

			id, err := strconv.ParseInt(claims.UserID, 10, 64)
			if err != nil {
				m.RecordAuth("token", false)
				writeJSONError(w, http.StatusUnauthorized,
					string(apperror.CodeUnauthenticated), "invalid token subject")
				return
			}

			m.RecordAuth("token", true)
			ctx := WithUser(r.Context(), User{ID: id, Username: claims.Username})
			ctx = logger.IntoContext(ctx, logger.FromContext(ctx).With("user_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth отклоняет запросы без пользователя в контексте.
// Ставится после OptionalAuth.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized,
				string(apperror.CodeUnauthenticated), "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
