package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/httpx"
	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/services"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *auth.Tokens
}

func NewAuthHandler(users *services.UserService, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type tokenResponse struct {
	Token     string            `json:"token"`
	User      *models.User      `json:"user"`
	Workspace *models.Workspace `json:"workspace,omitempty"`
}

// Signup creates the account with its personal workspace and logs in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupParams
	if !decode(w, r, &req) {
		return
	}
	user, ws, err := h.users.Signup(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	token, err := h.issue(user.ID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tokenResponse{Token: token, User: user, Workspace: ws})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	token, err := h.issue(user.ID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) issue(userID uint) (string, error) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		return "", ierr.WithError(err).WithHint("Could not issue token").Mark(ierr.ErrSystem)
	}
	return token, nil
}
