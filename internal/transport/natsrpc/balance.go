package natsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/ledger"
)

// AuthorizationHeader carries "Bearer <token>" on balance requests.
const AuthorizationHeader = "Authorization"

type BalanceReader interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type BalanceReply struct {
	UserID  string           `json:"user_id,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// BalanceResponder answers balance requests from other services on behalf of
// an authenticated user. The caller's session token travels in the
// Authorization header and the reply only ever covers that token's user.
type BalanceResponder struct {
	reader  BalanceReader
	authn   TokenAuthenticator
	logger  *zap.Logger
	timeout time.Duration
}

func NewBalanceResponder(reader BalanceReader, authn TokenAuthenticator, logger *zap.Logger) *BalanceResponder {
	return &BalanceResponder{reader: reader, authn: authn, logger: logger, timeout: 2 * time.Second}
}

// Subscribe registers the responder on subject.
func (b *BalanceResponder) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		reply := b.Handle(context.Background(), msg.Header.Get(AuthorizationHeader))
		if err := msg.Respond(reply); err != nil {
			b.logger.Warn("failed to respond to balance request", zap.Error(err))
		}
	})
}

// Handle builds the JSON reply for one request given its Authorization value.
func (b *BalanceResponder) Handle(ctx context.Context, authorization string) []byte {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	token, ok := auth.BearerToken(authorization)
	if !ok {
		return encode(BalanceReply{Error: "unauthorized"})
	}
	claims, err := b.authn.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrSessionNotFound) {
			b.logger.Error("session lookup failed", zap.Error(err))
		}
		return encode(BalanceReply{Error: "unauthorized"})
	}

	balance, err := b.reader.GetBalance(ctx, claims.UserID)
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		return encode(BalanceReply{UserID: claims.UserID, Error: "user not found"})
	case err != nil:
		b.logger.Error("balance request failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return encode(BalanceReply{UserID: claims.UserID, Error: "internal error"})
	}
	return encode(BalanceReply{UserID: claims.UserID, Balance: &balance})
}

func encode(reply BalanceReply) []byte {
	data, _ := json.Marshal(reply)
	return data
}
