package api

import (
	"net/http"
	"time"

	"github.com/STRATINT/zonewatch/internal/auth"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Message   string    `json:"message"`
	User      auth.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("failed login attempt", "username", req.Username, "ip", r.RemoteAddr)
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user, h.auth.JWTSecret, h.auth.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("successful login", "username", user.Username, "ip", r.RemoteAddr)

	h.respondJSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful",
		User:      user,
		Token:     token,
		ExpiresAt: time.Now().Add(h.auth.TokenDuration),
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only
// acknowledges the request.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// CurrentUser handles GET /api/auth/user
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

func (h *Handler) deny(w http.ResponseWriter, message string) {
	h.respondError(w, http.StatusUnauthorized, message)
}
