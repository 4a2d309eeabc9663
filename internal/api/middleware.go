package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/metrics"
)

// OriginVerifyHeader carries the secret CloudFront adds to origin requests.
const OriginVerifyHeader = "x-origin-verify"

// WithOriginVerify rejects requests lacking the shared secret header, so
// the API Gateway endpoint is only reachable through CloudFront. An empty
// secret disables the check.
func WithOriginVerify(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(OriginVerifyHeader)), []byte(secret)) != 1 {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// WithMetrics emits RequestLatencyMs and RequestCount per route. The route
// pattern is used as dimension, so session ids never reach CloudWatch.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.New(metrics.Namespace).
			Dimension("Endpoint", endpoint).
			Duration("RequestLatencyMs", time.Since(start)).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode).
			Flush()
	})
}
