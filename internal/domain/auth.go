package domain

// Request bodies for the sign-in channels. Validation tags are enforced in the
// handlers via pkg/validate before any service call.

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// GoogleUserInfo is returned to a new Google user so the client can pre-fill
// the registration form.
type GoogleUserInfo struct {
	GoogleID string `json:"google_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type RegistrationRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	GoogleID *string `json:"google_id"` // set when registration follows a Google sign-in
}

// EmailAuthRequest is the check-email sign-in: existing users are signed in
// directly, new users are created when a name is supplied.
type EmailAuthRequest struct {
	Name     *string `json:"name"`
	Email    string  `json:"email" validate:"required,email"`
	GoogleID *string `json:"google_id"`
}

type EmailSendOTPRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name"`
}

type EmailVerifyOTPRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	OTP      string  `json:"otp" validate:"required,len=6"`
	Name     *string `json:"name"`
	GoogleID *string `json:"google_id"`
}

type PhoneSendOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type PhoneVerifyOTPRequest struct {
	PhoneNumber string  `json:"phone_number" validate:"required"`
	OTP         string  `json:"otp" validate:"required,len=6"`
	Name        *string `json:"name"`
	GoogleID    *string `json:"google_id"`
}
