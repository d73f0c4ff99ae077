package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/response"
)

// Middleware authenticates bearer tokens and stores the caller's identity in
// the request context.
type Middleware struct {
	authn  *Authenticator
	logger *zap.Logger
}

func NewMiddleware(authn *Authenticator, logger *zap.Logger) *Middleware {
	return &Middleware{authn: authn, logger: logger}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			response.Error(w, r, http.StatusUnauthorized, "JWT token is missing")
			return
		}

		claims, err := m.authn.Authenticate(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidToken):
			response.Error(w, r, http.StatusUnauthorized, "JWT invalid token")
			return
		case errors.Is(err, ErrSessionNotFound):
			response.Error(w, r, http.StatusUnauthorized, "Session expired or revoked")
			return
		default:
			m.logger.Error("session lookup failed", zap.Error(err))
			response.Error(w, r, http.StatusUnauthorized, "Session expired or revoked")
			return
		}

		ctx := WithIdentity(r.Context(), claims.UserID, claims.SessionID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
