package auth

import (
	"context"
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

func Authenticate(ctx context.Context, verifier TokenVerifier, req *http.Request) (*auth.Token, error) {
	jwtToken, err := BearerTokenFromRequest(req)
	if err != nil {
		return nil, err
	}
	token, err := verifier.VerifyIDToken(ctx, jwtToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return token, nil
}
