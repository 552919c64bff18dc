package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dom/duo-chat/internal/api/middleware"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  *service.AuthService
	sessionTTL   time.Duration
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, sessionTTL time.Duration, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	ProfilePic string `json:"profilePic"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Signup(r.Context(), service.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, "signup", err)
		return
	}

	session.SetCookie(w, result.Token, h.sessionTTL, h.secureCookie)
	writeJSON(w, http.StatusCreated, result.User)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, "login", err)
		return
	}

	session.SetCookie(w, result.Token, h.sessionTTL, h.secureCookie)
	writeJSON(w, http.StatusOK, result.User)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProfilePic == "" {
		writeError(w, http.StatusBadRequest, "Profile pic is required")
		return
	}

	user, err := h.authService.UpdateProfilePic(r.Context(), userID, req.ProfilePic)
	if err != nil {
		writeServiceError(w, h.logger, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Check returns the user bound to the session.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "check auth", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
