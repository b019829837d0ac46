// Package apierror maps request failures to typed HTTP error responses.
//
// Every failure a handler produces is rendered by Write, which picks the
// status and message from the failure kind, logs it, and negotiates the body
// format from the Accept header.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sipico/vssv/internal/auth"
	"github.com/sipico/vssv/internal/middleware"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal covers unexpected failures while building a response.
	KindInternal Kind = iota
	// KindUnauthorized covers missing, invalid and expired credentials and
	// permission denials.
	KindUnauthorized
	// KindBadClientAddress covers a malformed or unreadable trusted X-Real-IP header.
	KindBadClientAddress
	// KindBadRequest covers a path parameter that is not a valid id.
	KindBadRequest
	// KindPayloadTooLarge covers uploads above the configured limit.
	KindPayloadTooLarge
	// KindNotFound covers unknown routes and secrets that do not exist.
	KindNotFound
	// KindPersistence covers any error from the data layer.
	KindPersistence
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadClientAddress:
		return "bad_client_address"
	case KindBadRequest:
		return "bad_request"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadClientAddress, KindBadRequest:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) defaultMessage() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadClientAddress:
		return "bad client address"
	case KindBadRequest:
		return "invalid secret id"
	case KindPayloadTooLarge:
		return "secret contents too large"
	case KindNotFound:
		return "not found"
	default:
		return "internal server error"
	}
}

// Error is a failure with a kind and, optionally, the underlying cause. The
// cause is logged but never sent to the client.
type Error struct {
	Kind    Kind
	Err     error
	message string
	level   *slog.Level
}

// New creates an Error of the given kind wrapping err, which may be nil.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// WithMessage overrides the static client message for the kind. Use only
// fixed strings: the message is sent to the client verbatim.
func (e *Error) WithMessage(msg string) *Error {
	e.message = msg
	return e
}

// WithLevel overrides the level the error is logged at.
func (e *Error) WithLevel(level slog.Level) *Error {
	e.level = &level
	return e
}

// Status returns the HTTP status code.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Message returns the client-facing message.
func (e *Error) Message() string {
	if e.message != "" {
		return e.message
	}
	return e.Kind.defaultMessage()
}

// Level returns the level the error is logged at. Authentication failures
// use auth.LogLevel; other kinds log at error for 5xx and warn otherwise.
func (e *Error) Level() slog.Level {
	if e.level != nil {
		return *e.level
	}
	if e.Kind == KindUnauthorized {
		return auth.LogLevel(e.Err)
	}
	if e.Status() >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message(), e.Err)
	}
	return e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Body is the JSON error body.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WantsJSON reports whether the client's Accept header asks for JSON.
func WantsJSON(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		if strings.Contains(strings.ToLower(v), "application/json") {
			return true
		}
	}
	return false
}

// Write renders err. Errors that are not *Error are treated as KindInternal.
// Not-found errors are not logged.
func Write(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = New(KindInternal, err)
	}

	if apiErr.Kind != KindNotFound {
		if logger == nil {
			logger = slog.Default()
		}
		attrs := []any{
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", apiErr.Status(),
			"kind", apiErr.Kind.String(),
		}
		if token := auth.TokenFromContext(r.Context()); token != nil {
			attrs = append(attrs, "token", token.ID)
		}
		if apiErr.Err != nil {
			attrs = append(attrs, "error", apiErr.Err)
		}
		logger.Log(r.Context(), apiErr.Level(), "request failed", attrs...)
	}

	status := apiErr.Status()
	msg := apiErr.Message()

	w.Header().Del("Content-Disposition")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		//nolint:errcheck // Response write errors are unrecoverable
		json.NewEncoder(w).Encode(Body{Code: status, Message: msg})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	fmt.Fprintf(w, "%d: %s", status, msg)
}
