/*
middleware.go - HTTP extraction of the caller identity

PURPOSE:
  Credential verification (JWT, cookies, TLS) happens upstream; by the time a
  request reaches this service the auth proxy has attached the verified
  identity as X-Caller-* headers. This middleware turns those headers into a
  typed Caller and rejects requests whose role is missing or unrecognized
  before any handler runs.

HEADERS:
  X-Caller-Id       numeric user id
  X-Caller-Login    login name
  X-Caller-Role     role tag (closed set, see identity.go)
  X-Caller-Name     display name
  X-Caller-Cities   comma-separated allowed cities (optional)

SEE ALSO:
  - identity.go: Caller and Role
  - api/server.go: Mounts this middleware on the /api subtree
*/
package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type contextKey struct{}

var callerKey contextKey

// CallerFrom returns the caller attached by Middleware.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

// WithCaller attaches a caller to a context. Exported for tests and for
// non-HTTP entry points.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// Middleware builds the Caller from trusted headers. Requests without a
// recognizable identity are rejected with 403 before reaching any handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFromHeaders(r)
		if !ok {
			http.Error(w, `{"error":"access denied"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func callerFromHeaders(r *http.Request) (Caller, bool) {
	role, ok := ParseRole(r.Header.Get("X-Caller-Role"))
	if !ok {
		return Caller{}, false
	}
	userID, err := strconv.ParseInt(r.Header.Get("X-Caller-Id"), 10, 64)
	if err != nil {
		return Caller{}, false
	}

	var cities []string
	if raw := r.Header.Get("X-Caller-Cities"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cities = append(cities, c)
			}
		}
	}

	return Caller{
		UserID:        userID,
		Login:         r.Header.Get("X-Caller-Login"),
		Role:          role,
		DisplayName:   r.Header.Get("X-Caller-Name"),
		AllowedCities: cities,
	}, true
}
