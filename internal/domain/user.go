package domain

import "time"

// Placeholder display names assigned when a channel creates an account without
// a real name. A later sign-in with a name hint may overwrite them; anything
// else is user-chosen and never touched.
const (
	PlaceholderEmailUser  = "Email User"
	PlaceholderPhoneUser  = "Phone User"
	PlaceholderGoogleUser = "Google User"
)

// IsPlaceholderName reports whether name is one of the channel defaults.
func IsPlaceholderName(name string) bool {
	switch name {
	case PlaceholderEmailUser, PlaceholderPhoneUser, PlaceholderGoogleUser:
		return true
	}
	return false
}

// User is the identity aggregate. At least one of Email, PhoneNumber or
// GoogleSub is set at creation; email and phone_number are unique across all
// users when present, google_sub likewise (enforced via uniqueness guard items,
// not just the GSI).
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	DisplayName  string     `json:"name" dynamodbav:"display_name"`
	Email        *string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	PhoneNumber  *string    `json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	GoogleSub    *string    `json:"-" dynamodbav:"google_sub,omitempty"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash,omitempty"`
	IsVerified   bool       `json:"is_verified" dynamodbav:"is_verified"`
	Enable       bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}
