// Package auth drives the three sign-in channels (Google ID token, email OTP,
// phone OTP) plus email/password registration. Each channel is a two-state
// machine — unauthenticated until exactly one proof check passes — and every
// successful proof funnels through the identity resolver before a token is
// minted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biolens/auth-api/internal/application/identity"
	"github.com/biolens/auth-api/internal/domain"
	googleinfra "github.com/biolens/auth-api/internal/infrastructure/google"
	"github.com/biolens/auth-api/internal/otp"
	"golang.org/x/crypto/bcrypt"
)

// SignInResult is the authenticated outcome of any channel.
type SignInResult struct {
	User        *domain.User
	UserExisted bool
	AccessToken string
	ExpiresIn   int
}

// GoogleSignInResult is either an authenticated sign-in or, for unknown users,
// the verified claims the client needs to pre-fill its registration form.
type GoogleSignInResult struct {
	SignIn     *SignInResult
	GoogleInfo *domain.GoogleUserInfo
}

// EmailSignInResult is either an authenticated sign-in or a prompt to register
// (unknown email, no name supplied).
type EmailSignInResult struct {
	SignIn            *SignInResult
	NeedsRegistration bool
}

type Service interface {
	GoogleSignIn(ctx context.Context, req domain.GoogleLoginRequest) (*GoogleSignInResult, error)
	RegisterEmail(ctx context.Context, req domain.RegistrationRequest) (*SignInResult, error)
	EmailSignIn(ctx context.Context, req domain.EmailAuthRequest) (*EmailSignInResult, error)
	RequestEmailOTP(ctx context.Context, req domain.EmailSendOTPRequest) (userExists bool, err error)
	VerifyEmailOTP(ctx context.Context, req domain.EmailVerifyOTPRequest) (*SignInResult, error)
	RequestPhoneOTP(ctx context.Context, req domain.PhoneSendOTPRequest) (userExists bool, err error)
	VerifyPhoneOTP(ctx context.Context, req domain.PhoneVerifyOTPRequest) (*SignInResult, error)
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
}

type userResolver interface {
	Resolve(ctx context.Context, primary identity.Key, c identity.Candidates, nameHint, passwordHash string) (*domain.User, bool, error)
}

type tokenIssuer interface {
	Sign(userID string) (string, error)
	ExpiresIn() int
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*googleinfra.Payload, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	users     userLookup
	resolver  userResolver
	otps      otp.Store
	mail      mailer
	sms       smsSender
	google    googleVerifier
	tokens    tokenIssuer
	otpExpiry time.Duration
}

type ServiceDeps struct {
	Users          userLookup
	Resolver       userResolver
	OTPStore       otp.Store
	Mailer         mailer
	SMSSender      smsSender
	GoogleVerifier googleVerifier
	Tokens         tokenIssuer
	OTPExpiry      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:     deps.Users,
		resolver:  deps.Resolver,
		otps:      deps.OTPStore,
		mail:      deps.Mailer,
		sms:       deps.SMSSender,
		google:    deps.GoogleVerifier,
		tokens:    deps.Tokens,
		otpExpiry: deps.OTPExpiry,
	}
}

// normalizeEmail lowercases and trims an address. Every lookup and store
// write goes through this so "A@X.com " and "a@x.com" are the same identity.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) issueToken(u *domain.User, existed bool) (*SignInResult, error) {
	token, err := s.tokens.Sign(u.UserID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &SignInResult{
		User:        u,
		UserExisted: existed,
		AccessToken: token,
		ExpiresIn:   s.tokens.ExpiresIn(),
	}, nil
}

// GoogleSignIn verifies the provider token and signs in an already-known user.
// Unknown users are not created here: the verified claims go back to the
// client so registration can collect the rest of the profile first.
func (s *service) GoogleSignIn(ctx context.Context, req domain.GoogleLoginRequest) (*GoogleSignInResult, error) {
	payload, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	// An unverified provider email is not an identity key: matching on it
	// would hand this account to whoever typed the address at Google.
	email := ""
	if payload.EmailVerified {
		email = normalizeEmail(payload.Email)
	}
	known := false
	if _, err := s.users.GetByGoogleSub(ctx, payload.Sub); err == nil {
		known = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !known && email != "" {
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			known = true
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	name := payload.Name
	if !known {
		return &GoogleSignInResult{
			GoogleInfo: &domain.GoogleUserInfo{GoogleID: payload.Sub, Email: email, Name: name},
		}, nil
	}

	c := identity.Candidates{GoogleSub: &payload.Sub}
	if email != "" {
		c.Email = &email
	}
	u, existed, err := s.resolver.Resolve(ctx, identity.KeyGoogle, c, name, "")
	if err != nil {
		return nil, err
	}
	signIn, err := s.issueToken(u, existed)
	if err != nil {
		return nil, err
	}
	return &GoogleSignInResult{SignIn: signIn}, nil
}

func (s *service) RegisterEmail(ctx context.Context, req domain.RegistrationRequest) (*SignInResult, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	c := identity.Candidates{Email: &email, GoogleSub: req.GoogleID}
	u, existed, err := s.resolver.Resolve(ctx, identity.KeyEmail, c, req.Name, string(hash))
	if err != nil {
		return nil, err
	}
	return s.issueToken(u, existed)
}

// EmailSignIn is the check-email flow: an existing user signs straight in, an
// unknown email with a name creates the account, an unknown email without a
// name is bounced back to registration.
func (s *service) EmailSignIn(ctx context.Context, req domain.EmailAuthRequest) (*EmailSignInResult, error) {
	email := normalizeEmail(req.Email)
	_, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	unknown := err != nil

	if unknown && req.Name == nil {
		return &EmailSignInResult{NeedsRegistration: true}, nil
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	c := identity.Candidates{Email: &email, GoogleSub: req.GoogleID}
	u, existed, err := s.resolver.Resolve(ctx, identity.KeyEmail, c, name, "")
	if err != nil {
		return nil, err
	}
	signIn, err := s.issueToken(u, existed)
	if err != nil {
		return nil, err
	}
	return &EmailSignInResult{SignIn: signIn}, nil
}

func (s *service) RequestEmailOTP(ctx context.Context, req domain.EmailSendOTPRequest) (bool, error) {
	email := normalizeEmail(req.Email)
	exists, err := keyExists(func() (*domain.User, error) { return s.users.GetByEmail(ctx, email) })
	if err != nil {
		return false, err
	}

	code, err := s.otps.Send(ctx, email)
	if err != nil {
		return exists, err
	}
	// A failed delivery leaves the code stored; the client's retry calls Send
	// again, which reissues a fresh code (last send wins).
	if err := s.mail.SendEmail(email, "Your BioLens verification code",
		fmt.Sprintf("Your one-time code is %s. It is valid for %d minutes.\nIf you didn't request it, ignore this email.", code, int(s.otpExpiry.Minutes()))); err != nil {
		return exists, fmt.Errorf("send OTP email: %w", err)
	}
	return exists, nil
}

func (s *service) VerifyEmailOTP(ctx context.Context, req domain.EmailVerifyOTPRequest) (*SignInResult, error) {
	email := normalizeEmail(req.Email)
	ok, err := s.otps.Verify(ctx, email, req.OTP)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	c := identity.Candidates{Email: &email, GoogleSub: req.GoogleID}
	u, existed, err := s.resolver.Resolve(ctx, identity.KeyEmail, c, name, "")
	if err != nil {
		return nil, err
	}
	return s.issueToken(u, existed)
}

func (s *service) RequestPhoneOTP(ctx context.Context, req domain.PhoneSendOTPRequest) (bool, error) {
	if s.sms == nil {
		return false, errors.New("SMS delivery is not configured")
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	exists, err := keyExists(func() (*domain.User, error) { return s.users.GetByPhone(ctx, phone) })
	if err != nil {
		return false, err
	}

	code, err := s.otps.Send(ctx, phone)
	if err != nil {
		return exists, err
	}
	if err := s.sms.SendSMS(ctx, phone, "Your BioLens verification code: "+code); err != nil {
		return exists, fmt.Errorf("send OTP SMS: %w", err)
	}
	return exists, nil
}

func (s *service) VerifyPhoneOTP(ctx context.Context, req domain.PhoneVerifyOTPRequest) (*SignInResult, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	ok, err := s.otps.Verify(ctx, phone, req.OTP)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	c := identity.Candidates{PhoneNumber: &phone, GoogleSub: req.GoogleID}
	u, existed, err := s.resolver.Resolve(ctx, identity.KeyPhone, c, name, "")
	if err != nil {
		return nil, err
	}
	return s.issueToken(u, existed)
}

// keyExists runs a lookup and collapses it to "does a user exist", letting
// genuine store failures through. The answer only shapes the guidance message
// on send-OTP responses; the verify step re-resolves from scratch.
func keyExists(get func() (*domain.User, error)) (bool, error) {
	_, err := get()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}
