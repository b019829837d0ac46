package middleware

import "net/http"

// MaxBodySize returns middleware that limits request body size.
// Reading past maxBytes fails with *http.MaxBytesError, which handlers turn
// into a 413 response. A non-positive maxBytes disables the limit.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
