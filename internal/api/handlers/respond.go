package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/media"
	"go.uber.org/zap"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

var validationMessages = []struct {
	err     error
	message string
}{
	{domain.ErrEmailExists, "User already exists"},
	{domain.ErrInvalidCredentials, "Invalid credentials"},
	{domain.ErrMissingFields, "All fields are required"},
	{domain.ErrWeakPassword, "Password must be at least 6 characters"},
	{domain.ErrInvalidEmail, "Invalid email format"},
	{domain.ErrEmptyMessage, "Message must have text or an image"},
}

// writeServiceError maps a service error onto a status code. Unexpected errors are
// logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			writeError(w, http.StatusBadRequest, v.message)
			return
		}
	}

	switch {
	case domain.IsAuthError(err):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, media.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "Invalid image")
	case errors.Is(err, domain.ErrUpload):
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Image upload failed")
	default:
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
