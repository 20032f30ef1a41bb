package handler

import (
	"encoding/json"
	"net/http"

	"github.com/biolens/auth-api/internal/application/auth"
	"github.com/biolens/auth-api/internal/domain"
	"github.com/biolens/auth-api/internal/pkg/validate"
)

// AuthHandler handles the sign-in channel endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func signInResponse(res *auth.SignInResult) AuthResponse {
	return AuthResponse{
		Success:     true,
		UserExists:  res.UserExisted,
		UserID:      res.User.UserID,
		Name:        res.User.DisplayName,
		Email:       res.User.Email,
		PhoneNumber: res.User.PhoneNumber,
		Token: &TokenPayload{
			AccessToken: res.AccessToken,
			TokenType:   "bearer",
			ExpiresIn:   res.ExpiresIn,
		},
	}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.GoogleSignIn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if res.GoogleInfo != nil {
		// Success reports that the request was processed, not that a token
		// was issued; the missing token and user_exists=false carry that.
		writeJSON(w, http.StatusOK, GoogleSignInResponse{
			AuthResponse: AuthResponse{Success: true, UserExists: false},
			GoogleInfo:   res.GoogleInfo,
			Message:      "registration required",
		})
		return
	}
	writeJSON(w, http.StatusOK, GoogleSignInResponse{AuthResponse: signInResponse(res.SignIn)})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegistrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.RegisterEmail(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signInResponse(res))
}

func (h *AuthHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailAuthRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.EmailSignIn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if res.NeedsRegistration {
		writeJSON(w, http.StatusOK, EmailSignInResponse{
			AuthResponse:      AuthResponse{Success: true, UserExists: false},
			NeedsRegistration: true,
			Message:           "user not found, registration required",
		})
		return
	}
	writeJSON(w, http.StatusOK, EmailSignInResponse{AuthResponse: signInResponse(res.SignIn)})
}

func (h *AuthHandler) SendEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailSendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	exists, err := h.svc.RequestEmailOTP(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	msg := "OTP sent, a new account will be created on verification"
	if exists {
		msg = "OTP sent"
	}
	writeJSON(w, http.StatusOK, SendOTPResponse{Success: true, Message: msg, UserExists: exists})
}

func (h *AuthHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailVerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyEmailOTP(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse(res))
}

func (h *AuthHandler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneSendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	exists, err := h.svc.RequestPhoneOTP(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	msg := "OTP sent, a new account will be created on verification"
	if exists {
		msg = "OTP sent"
	}
	writeJSON(w, http.StatusOK, SendOTPResponse{Success: true, Message: msg, UserExists: exists})
}

func (h *AuthHandler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneVerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyPhoneOTP(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse(res))
}
