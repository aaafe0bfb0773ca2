package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/filedash/filedash/internal/authn"
)

type contextKey int

const (
	claimsContextKey contextKey = iota
	requestIDContextKey
)

// requestID returns middleware that stamps every request with a fresh
// identifier, attached both to the context (for downstream logging) and to
// the response as X-Request-Id. It runs as the outermost middleware layer.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseRecorder captures the status code and byte count of a response so
// the access log entry can report them.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// requestLog returns middleware that emits one structured access log entry
// per request after it completes, with no mid-stream noise even for long
// uploads/downloads.
func requestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("http",
				"request_id", r.Context().Value(requestIDContextKey),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_bytes", rec.written,
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// maxBodyBytes returns middleware that rejects requests whose body exceeds
// limit before any handler reads them.
func maxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeErrorCode(w, http.StatusRequestEntityTooLarge, "file_too_large", "request body exceeds the configured maximum")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// unauthenticatedPaths lists routes that bypass the auth middleware.
var unauthenticatedPaths = map[string]bool{
	"/health":         true,
	"/health/ready":   true,
	"/api/auth/login": true,
}

// requireAuth returns middleware that extracts and verifies the bearer
// token, attaching Claims to the request context on success.
func requireAuth(ts *authn.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unauthenticatedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
				writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "missing or malformed Authorization header")
				return
			}
			tokenStr := header[len(prefix):]

			claims, err := ts.Verify(r.Context(), tokenStr)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromContext retrieves the verified claims attached by requireAuth.
// Only called from routes registered behind requireAuth, so the second
// return is only ever false as a defensive measure.
func claimsFromContext(ctx context.Context) (authn.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(authn.Claims)
	return c, ok
}

// requireAdmin returns middleware that rejects non-admin callers with 403.
// Used to gate user registration to existing admins.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || claims.Role != "admin" {
			writeErrorCode(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
