package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/biolens/auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TokenPayload carries the issued bearer token.
type TokenPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthResponse wraps every successful sign-in or registration.
type AuthResponse struct {
	Success     bool          `json:"success"`
	UserExists  bool          `json:"user_exists"`
	UserID      string        `json:"user_id,omitempty"`
	Name        string        `json:"name,omitempty"`
	Email       *string       `json:"email,omitempty"`
	PhoneNumber *string       `json:"phone_number,omitempty"`
	Token       *TokenPayload `json:"token,omitempty"`
}

// GoogleSignInResponse adds the verified provider claims that a new user
// needs to pre-fill registration.
type GoogleSignInResponse struct {
	AuthResponse
	GoogleInfo *domain.GoogleUserInfo `json:"google_info,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// EmailSignInResponse flags the unknown-email case back to the client.
type EmailSignInResponse struct {
	AuthResponse
	NeedsRegistration bool   `json:"needs_registration,omitempty"`
	Message           string `json:"message,omitempty"`
}

// SendOTPResponse reports delivery plus whether the identifier is already
// registered, so the client can phrase the next screen.
type SendOTPResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	UserExists bool   `json:"user_exists"`
}

// FaceUploadResponse describes a stored face capture.
type FaceUploadResponse struct {
	Success  bool   `json:"success"`
	FaceID   string `json:"face_id"`
	FaceType string `json:"face_type"`
	Object   string `json:"object"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
