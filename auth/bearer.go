package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

var (
	ErrMissingAuthorizationHeader = errors.New("missing Authorization header")
	ErrInvalidAuthorizationHeader = errors.New("invalid Authorization header")
)

func BearerTokenFromRequest(r *http.Request) (string, error) {
	reqToken := r.Header.Get(authorizationHeader)
	if reqToken == "" {
		return "", ErrMissingAuthorizationHeader
	}
	splitToken := strings.Split(reqToken, bearerPrefix)
	if len(splitToken) != 2 || splitToken[0] != "" {
		return "", ErrInvalidAuthorizationHeader
	}
	token := strings.TrimSpace(splitToken[1])
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return token, nil
}
