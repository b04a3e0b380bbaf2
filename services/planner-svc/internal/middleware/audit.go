package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"skypath/pkg/audit"
	"skypath/pkg/logger"
	"skypath/pkg/ratelimit"
)

// AuditConfig конфигурация аудита HTTP запросов
type AuditConfig struct {
	ServiceName  string
	Logger       audit.Logger
	ExcludeRoute map[string]bool
}

// Audit пишет аудит запись для каждого запроса API после его завершения
func Audit(cfg *AuditConfig) Middleware {
	if cfg == nil || cfg.Logger == nil {
		return nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RouteName(r)
			if cfg.ExcludeRoute[route] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			builder := audit.NewEntry().
				Service(cfg.ServiceName).
				Method(r.Method+" "+route).
				Action(routeToAction(r.Method, route)).
				Client(ratelimit.ClientIP(r), r.UserAgent()).
				RequestID(GetRequestID(r.Context())).
				Duration(time.Since(start)).
				Meta("status", rec.status)

			if u, ok := GetUser(r.Context()); ok {
				builder.User(strconv.FormatInt(u.ID, 10), u.Username)
			}

			switch {
			case rec.status == http.StatusUnauthorized || rec.status == http.StatusForbidden:
				builder.Outcome(audit.OutcomeDenied)
			case rec.status >= http.StatusBadRequest:
				builder.Outcome(audit.OutcomeFailure).
					Error(strconv.Itoa(rec.status), http.StatusText(rec.status))
			default:
				builder.Outcome(audit.OutcomeSuccess)
			}

			entry := builder.Build()

			// Асинхронно, чтобы не задерживать ответ
			go func() {
				if err := cfg.Logger.Log(context.Background(), entry); err != nil {
					logger.Log.Warn("Failed to write audit log", "error", err)
				}
			}()
		})
	}
}

func routeToAction(method, route string) audit.Action {
	switch route {
	case "/api/v1/auth/register":
		return audit.ActionRegister
	case "/api/v1/auth/login":
		return audit.ActionLogin
	case "/api/v1/auth/refresh":
		return audit.ActionRefresh
	case "/api/v1/routes":
		return audit.ActionPlan
	case "/api/v1/routes/render":
		return audit.ActionRender
	case "/api/v1/trips", "/api/v1/trips/{id}":
		if method == http.MethodGet {
			return audit.ActionListTrips
		}
		return audit.ActionSaveTrip
	default:
		return audit.ActionRead
	}
}
