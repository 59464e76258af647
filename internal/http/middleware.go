package http

import (
	"bytes"
	"context"
	"crypto/rsa"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/robertarktes/reservation-finalizer/internal/idempotency"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"github.com/robertarktes/reservation-finalizer/internal/rateLimit"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	usernameKey
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey, entry)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
			entry.WithField("status", status).Debug(r.Method + " " + route)
		})
	}
}

func LoggerFrom(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l, ok := ctx.Value(loggerKey).(observability.Logger); ok {
		return l
	}
	return fallback
}

// ParsePublicKey reads the PEM encoded RSA key operator tokens are signed with.
func ParsePublicKey(pem string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	return key, errors.Wrap(err, "parse jwt public key")
}

// JWTMiddleware verifies the bearer token and exposes the operator's username.
func JWTMiddleware(key *rsa.PublicKey) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || key == nil {
				writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			tok, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired())
			if err != nil || !tok.Valid {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			username := usernameFromClaims(tok.Claims)
			if username == "" {
				writeJSONError(w, http.StatusUnauthorized, "token without subject")
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func usernameFromClaims(c jwt.Claims) string {
	claims, ok := c.(jwt.MapClaims)
	if !ok {
		return ""
	}
	if v, ok := claims["preferred_username"].(string); ok && v != "" {
		return v
	}
	sub, _ := claims.GetSubject()
	return sub
}

func UsernameFrom(ctx context.Context) string {
	u, _ := ctx.Value(usernameKey).(string)
	return u
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a POST retried with the
// same Idempotency-Key. Keys are scoped to the request path.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				writeJSONError(w, http.StatusBadRequest, "missing Idempotency-Key")
				return
			}
			if len(key) < 16 {
				writeJSONError(w, http.StatusBadRequest, "invalid Idempotency-Key")
				return
			}
			scoped := r.URL.Path + ":" + key
			existing, err := idemp.Get(r.Context(), scoped)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "idempotency store unavailable")
				return
			}
			if existing != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				w.Write(existing.Result)
				return
			}

			cw := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			if err := idemp.Set(r.Context(), scoped, idempotency.Response{Status: cw.status, Result: cw.body.Bytes()}); err != nil {
				LoggerFrom(r.Context(), observability.NewLogger()).Warn("store idempotent response: ", err)
			}
		})
	}
}

func RateLimitMiddleware(rl *rateLimit.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			allowed := rl.Allow(r.Context(), "ip:"+ip, 100, time.Minute)
			if user := UsernameFrom(r.Context()); allowed && user != "" {
				allowed = rl.Allow(r.Context(), "user:"+user, 30, time.Minute)
			}
			if !allowed {
				observability.RateLimitExceeded.Inc()
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "operator-api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return r.Method + " " + r.URL.Path
	}))
}
