package httpapi

import (
	"net/http"
	"strconv"
)

const (
	// defaultUploadConcurrency is the fallback slot count when maxConcurrent ≤ 0.
	defaultUploadConcurrency = 32

	retryAfterSeconds = "5"
)

// uploadLimiter caps the number of concurrently active upload requests using
// a non-blocking channel semaphore. When the semaphore is full, new requests
// receive HTTP 503 + Retry-After immediately rather than queuing — queuing
// under a large concurrent spike would exhaust RAM before providing any
// relief.
type uploadLimiter struct {
	sem chan struct{}
}

// newUploadLimiter creates a limiter allowing at most maxConcurrent
// simultaneous uploads.
func newUploadLimiter(maxConcurrent int) *uploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultUploadConcurrency
	}
	return &uploadLimiter{sem: make(chan struct{}, maxConcurrent)}
}

// Active returns the number of upload slots currently in use.
func (l *uploadLimiter) Active() int { return len(l.sem) }

// limit wraps a handler so that each request must acquire a slot from the
// semaphore before proceeding. Requests that cannot acquire immediately get
// a 503 with Retry-After rather than blocking.
func (l *uploadLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
			next.ServeHTTP(w, r)
		default:
			w.Header().Set("Retry-After", retryAfterSeconds)
			w.Header().Set("X-Active-Uploads", strconv.Itoa(len(l.sem)))
			writeErrorCode(w, http.StatusServiceUnavailable, "server_busy", "server at capacity, retry shortly")
		}
	})
}
