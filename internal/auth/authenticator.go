package auth

import (
	"context"
	"strings"
)

// Authenticator resolves a bearer token to its live session. HTTP and NATS
// entry points share it.
type Authenticator struct {
	issuer   *Issuer
	sessions SessionStore
}

func NewAuthenticator(issuer *Issuer, sessions SessionStore) *Authenticator {
	return &Authenticator{issuer: issuer, sessions: sessions}
}

// Authenticate returns the token's claims once the signature, expiry and
// session registry all agree. It fails with ErrInvalidToken, ErrSessionNotFound
// or a session store error.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := a.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	userID, err := a.sessions.Lookup(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if userID != claims.UserID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
