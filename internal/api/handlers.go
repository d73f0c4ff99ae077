package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/account"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/events"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/ledger"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/response"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	ledger   *ledger.Ledger
	accounts *account.Service
	notifier *events.Notifier
	logger   *zap.Logger
	env      string
}

func NewHandler(l *ledger.Ledger, accounts *account.Service, notifier *events.Notifier, logger *zap.Logger, env string) *Handler {
	return &Handler{
		ledger:   l,
		accounts: accounts,
		notifier: notifier,
		logger:   logger,
		env:      env,
	}
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"env":    h.env,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// currentUser returns the authenticated user id placed by auth.Middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "unauthenticated")
	}
	return userID, ok
}

// writeError maps domain errors to status codes. Only unexpected failures are
// logged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, account.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, ledger.ErrStatementNotFound):
		response.Error(w, r, http.StatusNotFound, "Statement not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.Error(w, r, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidDescription):
		response.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrEmailInUse):
		response.Error(w, r, http.StatusConflict, "User already exists")
	case errors.Is(err, account.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, account.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op+" failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		response.Error(w, r, http.StatusInternalServerError, "internal server error")
	}
}
