package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/response"
)

type statementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// getBalance handles GET /api/v1/statements/balance
func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	b, err := h.ledger.GetStatement(r.Context(), userID)
	observeOperation("get_balance", err)
	if err != nil {
		h.writeError(w, r, "getBalance", err)
		return
	}
	response.JSON(w, r, http.StatusOK, b)
}

// deposit handles POST /api/v1/statements/deposit
func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stmt, err := h.ledger.Deposit(r.Context(), userID, req.Amount, req.Description)
	observeOperation("deposit", err)
	if err != nil {
		h.writeError(w, r, "deposit", err)
		return
	}
	h.notifier.StatementsCreated(r.Context(), stmt)
	response.JSON(w, r, http.StatusCreated, stmt)
}

// withdraw handles POST /api/v1/statements/withdraw
func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stmt, err := h.ledger.Withdraw(r.Context(), userID, req.Amount, req.Description)
	observeOperation("withdraw", err)
	if err != nil {
		h.writeError(w, r, "withdraw", err)
		return
	}
	h.notifier.StatementsCreated(r.Context(), stmt)
	response.JSON(w, r, http.StatusCreated, stmt)
}

// transfer handles POST /api/v1/statements/transfers/{user_id}
func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	destinationID := chi.URLParam(r, "user_id")
	t, err := h.ledger.Transfer(r.Context(), senderID, destinationID, req.Amount, req.Description)
	observeOperation("transfer", err)
	if err != nil {
		h.writeError(w, r, "transfer", err)
		return
	}
	h.notifier.StatementsCreated(r.Context(), t.Withdraw, t.Incoming)
	response.JSON(w, r, http.StatusCreated, t)
}

// getStatementOperation handles GET /api/v1/statements/{statement_id}
func (h *Handler) getStatementOperation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	stmt, err := h.ledger.GetStatementOperation(r.Context(), userID, chi.URLParam(r, "statement_id"))
	observeOperation("get_statement", err)
	if err != nil {
		h.writeError(w, r, "getStatementOperation", err)
		return
	}
	response.JSON(w, r, http.StatusOK, stmt)
}
