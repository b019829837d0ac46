package middleware

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/sipico/vssv/internal/logging"
)

// maxLoggedBody caps how much of a JSON response is buffered for logging.
const maxLoggedBody = 4 << 10

// errorBodyAllowlist lists the fields of error bodies that may be logged.
var errorBodyAllowlist = []string{"code", "message", "version", "git"}

// HTTPLogging creates a middleware that logs HTTP requests and responses.
// Only active when the logger is enabled for DEBUG.
//
// Request bodies are never read: uploads are secret contents and are logged
// by size only. Response bodies are logged only when they are JSON, with
// fields outside errorBodyAllowlist redacted; secret downloads are logged by
// size. Headers are masked with logging.MaskHeader.
func HTTPLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("HTTP Request",
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"url", r.URL.Path,
				"query_params", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"headers", maskHeaders(r.Header),
				"body", logging.FormatBodySize(max(r.ContentLength, 0)),
			)

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           new(bytes.Buffer),
			}

			start := time.Now()
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			logger.Debug("HTTP Response",
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"url", r.URL.Path,
				"status_code", rec.statusCode,
				"headers", maskHeaders(rec.Header()),
				"body", rec.loggableBody(),
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// maskHeaders masks sensitive header values
func maskHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = logging.MaskHeader(k, v[0])
		}
	}
	return result
}

// responseRecorder captures response details for logging.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int64
	body       *bytes.Buffer
}

// WriteHeader captures the status code and writes it to the response.
func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Write counts the response body and keeps a bounded copy of JSON bodies.
func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += int64(n)
	if r.isJSON() && r.body.Len() < maxLoggedBody {
		r.body.Write(b[:min(n, maxLoggedBody-r.body.Len())])
	}
	return n, err
}

func (r *responseRecorder) isJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header().Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func (r *responseRecorder) loggableBody() string {
	if r.size == 0 {
		return ""
	}
	if !r.isJSON() || int64(r.body.Len()) < r.size {
		return logging.FormatBodySize(r.size)
	}
	return string(logging.MaskJSONBody(r.body.Bytes(), errorBodyAllowlist))
}
