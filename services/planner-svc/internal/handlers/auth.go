package handlers

import (
	"net/http"
	"time"

	"skypath/pkg/logger"
	"skypath/pkg/passhash"
	"skypath/services/planner-svc/internal/repository"
	"skypath/services/planner-svc/internal/service"
)

// AuthHandler обработчики аутентификации
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт обработчик
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userProfile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	User         *userProfile `json:"user,omitempty"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int64        `json:"expires_in,omitempty"`
	TokenType    string       `json:"token_type,omitempty"`
}

// Register регистрирует пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.FromContext(r.Context()).Info("Registration rejected", "username", req.Username, "error", err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: convertUser(user)})
}

// Login выполняет вход
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.FromContext(r.Context()).Info("Login failed", "username", req.Username, "error", err)
		writeError(w, r, err)
		return
	}

	resp := tokenResponse(session.Tokens)
	resp.User = convertUser(session.User)
	writeJSON(w, http.StatusOK, resp)
}

// Refresh выдаёт новый access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

func tokenResponse(p *passhash.TokenPair) authResponse {
	return authResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		TokenType:    p.TokenType,
	}
}

func convertUser(u *repository.User) *userProfile {
	if u == nil {
		return nil
	}
	return &userProfile{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}
