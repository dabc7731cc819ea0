package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	"github.com/textlane/textlane/internal/scope"
)

// TokenValidator authenticates a bearer token. Satisfied by
// *identityapp.AuthService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*identitydomain.User, error)
}

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor placed by authMiddleware.
func ActorFromContext(ctx context.Context) (scope.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(scope.Actor)
	return actor, ok
}

// authMiddleware validates the bearer token and stores the actor in the
// request context. Token validation re-reads the user, so deactivated
// accounts are rejected here regardless of token expiry.
func authMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				respondError(w, http.StatusUnauthorized, "TOKEN_MISSING", "missing bearer token")
				return
			}

			user, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				respondDomainError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, scope.FromUser(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin rejects sub-accounts. Used on the /admin and /wallet trees.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.User().IsAdmin() {
			respondError(w, http.StatusForbidden, "ADMIN_ONLY", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "textlane",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Request latency by route pattern and status class.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// metricsMiddleware records per-route latency using the chi route pattern,
// not the raw path, so high-cardinality ids stay out of the label set.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
