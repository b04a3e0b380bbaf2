package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"skypath/pkg/logger"
)

// MiddlewareOptions настройки HTTP middleware
type MiddlewareOptions struct {
	// KeyExtractor по умолчанию ClientIPKey
	KeyExtractor KeyExtractor

	// ExcludePaths пути без ограничения (health, ready)
	ExcludePaths []string

	// OnLimited вызывается при отказе, например для метрик
	OnLimited func(r *http.Request, key string)

	// Reject пишет ответ 429. По умолчанию text/plain
	Reject func(w http.ResponseWriter, r *http.Request, info *LimitInfo)
}

// Middleware ограничивает частоту HTTP запросов.
// При ошибке хранилища запрос пропускается (fail open).
func Middleware(limiter Limiter, opts MiddlewareOptions) func(http.Handler) http.Handler {
	keyFn := opts.KeyExtractor
	if keyFn == nil {
		keyFn = ClientIPKey
	}

	excluded := make(map[string]bool, len(opts.ExcludePaths))
	for _, p := range opts.ExcludePaths {
		excluded[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := keyFn(r)

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.Log.Warn("Rate limit check failed", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}

			info, infoErr := limiter.GetInfo(ctx, key)
			if infoErr != nil {
				logger.Log.Debug("Failed to get rate limit info", "error", infoErr, "key", key)
				info = &LimitInfo{ResetAt: time.Now().Add(time.Minute)}
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			logger.Log.Warn("Rate limit exceeded", "key", key, "limit", info.Limit, "path", r.URL.Path)
			if opts.OnLimited != nil {
				opts.OnLimited(r, key)
			}

			retry := info.RetryAfter
			if retry <= 0 {
				retry = time.Until(info.ResetAt)
			}
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			h.Set("X-RateLimit-Remaining", "0")

			if opts.Reject != nil {
				opts.Reject(w, r, info)
				return
			}
			http.Error(w, ErrRateLimitExceeded.Error(), http.StatusTooManyRequests)
		})
	}
}
