// Package logging provides logger construction and helpers for logging
// requests without leaking credentials or secret payloads.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Redacted replaces values that must never appear in logs.
const Redacted = "[REDACTED]"

// MaskToken returns "****" followed by the last four characters of a bearer
// token, or just "****" for values too short to reveal anything.
func MaskToken(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskHeader redacts sensitive header values based on header name.
//
// Rules:
// - Cookie, password and secret headers: "[REDACTED]"
// - Authorization: "****" + last four characters
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if lowerName == "cookie" || lowerName == "set-cookie" ||
		strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") {
		return Redacted
	}

	if lowerName == "authorization" || lowerName == "proxy-authorization" {
		return MaskToken(value)
	}

	return value
}

// MaskJSONBody redacts every primitive JSON field whose name is not in the
// allowlist. Objects and arrays are walked so nested allowlisted fields
// survive. A nil allowlist returns the body unchanged; a body that is not
// valid JSON is returned as is.
func MaskJSONBody(body []byte, allowlist []string) []byte {
	if allowlist == nil || len(body) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	allowed := make(map[string]bool, len(allowlist))
	for _, field := range allowlist {
		allowed[field] = true
	}

	result, err := json.Marshal(maskJSONValue(data, allowed))
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value any, allowed map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			switch val.(type) {
			case map[string]any, []any:
				result[key] = maskJSONValue(val, allowed)
			default:
				if allowed[key] {
					result[key] = val
				} else {
					result[key] = Redacted
				}
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, allowed)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData formats binary data for logging.
// Returns a human-readable size indicator.
func FormatBinaryData(data []byte) string {
	return FormatBodySize(int64(len(data)))
}

// FormatBodySize describes a body that is not logged by its length only.
func FormatBodySize(n int64) string {
	return fmt.Sprintf("[BINARY: %d bytes]", n)
}
