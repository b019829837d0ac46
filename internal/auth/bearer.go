package auth

import "strings"

// ExtractBearerToken gets the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively. An empty header
// yields ErrMissingToken; any other scheme, or an empty token, yields
// ErrMalformedToken.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedToken
	}

	token = strings.TrimLeft(token, " ")
	if token == "" {
		return "", ErrMalformedToken
	}
	return token, nil
}
