package api

import (
	"net/http"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/account"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/response"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createUser handles POST /api/v1/users
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), account.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "createUser", err)
		return
	}
	response.JSON(w, r, http.StatusCreated, user)
}

// createSession handles POST /api/v1/sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "createSession", err)
		return
	}
	response.JSON(w, r, http.StatusOK, session)
}

// deleteSession handles DELETE /api/v1/sessions
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if err := h.accounts.Logout(r.Context(), sessionID); err != nil {
		h.writeError(w, r, "deleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// showProfile handles GET /api/v1/profile
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "showProfile", err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}
