package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/biolens/auth-api/internal/application/identity"
	"github.com/biolens/auth-api/internal/domain"
	googleinfra "github.com/biolens/auth-api/internal/infrastructure/google"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserLookup struct{ mock.Mock }

func (m *mockUserLookup) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserLookup) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserLookup) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	args := m.Called(ctx, sub)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, primary identity.Key, c identity.Candidates, nameHint, passwordHash string) (*domain.User, bool, error) {
	args := m.Called(ctx, primary, c, nameHint, passwordHash)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Sign(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) ExpiresIn() int { return m.Called().Int(0) }

type mockGoogle struct{ mock.Mock }

func (m *mockGoogle) Verify(ctx context.Context, token string) (*googleinfra.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*googleinfra.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockOTPStore struct{ mock.Mock }

func (m *mockOTPStore) Send(ctx context.Context, identifier string) (string, error) {
	args := m.Called(ctx, identifier)
	return args.String(0), args.Error(1)
}
func (m *mockOTPStore) Verify(ctx context.Context, identifier, code string) (bool, error) {
	args := m.Called(ctx, identifier, code)
	return args.Bool(0), args.Error(1)
}

type deps struct {
	users    *mockUserLookup
	resolver *mockResolver
	otps     *mockOTPStore
	mail     *mockMailer
	sms      *mockSMS
	google   *mockGoogle
	tokens   *mockTokens
}

func newService(t *testing.T) (Service, deps) {
	t.Helper()
	d := deps{
		users:    &mockUserLookup{},
		resolver: &mockResolver{},
		otps:     &mockOTPStore{},
		mail:     &mockMailer{},
		sms:      &mockSMS{},
		google:   &mockGoogle{},
		tokens:   &mockTokens{},
	}
	svc := NewService(ServiceDeps{
		Users:          d.users,
		Resolver:       d.resolver,
		OTPStore:       d.otps,
		Mailer:         d.mail,
		SMSSender:      d.sms,
		GoogleVerifier: d.google,
		Tokens:         d.tokens,
		OTPExpiry:      10 * time.Minute,
	})
	return svc, d
}

func strPtr(s string) *string { return &s }

func expectToken(d deps, userID string) {
	d.tokens.On("Sign", userID).Return("signed."+userID, nil)
	d.tokens.On("ExpiresIn").Return(3600)
}

// --- Google ---

func TestGoogleSignIn_KnownUser(t *testing.T) {
	svc, d := newService(t)

	d.google.On("Verify", mock.Anything, "tok").Return(&googleinfra.Payload{
		Sub: "sub-1", Email: "User@Mail.com", EmailVerified: true, Name: "Ada",
	}, nil)
	u := &domain.User{UserID: "u1", DisplayName: "Ada"}
	d.users.On("GetByGoogleSub", mock.Anything, "sub-1").Return(u, nil)
	d.resolver.On("Resolve", mock.Anything, identity.KeyGoogle, mock.MatchedBy(func(c identity.Candidates) bool {
		return c.GoogleSub != nil && *c.GoogleSub == "sub-1" &&
			c.Email != nil && *c.Email == "user@mail.com"
	}), "Ada", "").Return(u, true, nil)
	expectToken(d, "u1")

	res, err := svc.GoogleSignIn(context.Background(), domain.GoogleLoginRequest{IDToken: "tok"})
	require.NoError(t, err)
	require.NotNil(t, res.SignIn)
	assert.Nil(t, res.GoogleInfo)
	assert.True(t, res.SignIn.UserExisted)
	assert.Equal(t, "signed.u1", res.SignIn.AccessToken)
	assert.Equal(t, 3600, res.SignIn.ExpiresIn)
}

func TestGoogleSignIn_UnknownUserReturnsInfoWithoutCreating(t *testing.T) {
	svc, d := newService(t)

	d.google.On("Verify", mock.Anything, "tok").Return(&googleinfra.Payload{
		Sub: "sub-9", Email: "new@mail.com", EmailVerified: true, Name: "Newbie",
	}, nil)
	d.users.On("GetByGoogleSub", mock.Anything, "sub-9").Return(nil, domain.ErrNotFound)
	d.users.On("GetByEmail", mock.Anything, "new@mail.com").Return(nil, domain.ErrNotFound)

	res, err := svc.GoogleSignIn(context.Background(), domain.GoogleLoginRequest{IDToken: "tok"})
	require.NoError(t, err)
	assert.Nil(t, res.SignIn)
	require.NotNil(t, res.GoogleInfo)
	assert.Equal(t, "sub-9", res.GoogleInfo.GoogleID)
	assert.Equal(t, "new@mail.com", res.GoogleInfo.Email)
	assert.Equal(t, "Newbie", res.GoogleInfo.Name)
	d.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGoogleSignIn_KnownByEmailOnly(t *testing.T) {
	svc, d := newService(t)

	d.google.On("Verify", mock.Anything, "tok").Return(&googleinfra.Payload{
		Sub: "sub-2", Email: "ada@mail.com", EmailVerified: true, Name: "Ada",
	}, nil)
	d.users.On("GetByGoogleSub", mock.Anything, "sub-2").Return(nil, domain.ErrNotFound)
	u := &domain.User{UserID: "u2"}
	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").Return(u, nil)
	d.resolver.On("Resolve", mock.Anything, identity.KeyGoogle, mock.Anything, "Ada", "").Return(u, true, nil)
	expectToken(d, "u2")

	res, err := svc.GoogleSignIn(context.Background(), domain.GoogleLoginRequest{IDToken: "tok"})
	require.NoError(t, err)
	require.NotNil(t, res.SignIn)
}

func TestGoogleSignIn_UnverifiedEmailIgnored(t *testing.T) {
	svc, d := newService(t)

	d.google.On("Verify", mock.Anything, "tok").Return(&googleinfra.Payload{
		Sub: "sub-3", Email: "victim@mail.com", EmailVerified: false, Name: "Mallory",
	}, nil)
	d.users.On("GetByGoogleSub", mock.Anything, "sub-3").Return(nil, domain.ErrNotFound)

	res, err := svc.GoogleSignIn(context.Background(), domain.GoogleLoginRequest{IDToken: "tok"})
	require.NoError(t, err)
	assert.Nil(t, res.SignIn)
	require.NotNil(t, res.GoogleInfo)
	assert.Empty(t, res.GoogleInfo.Email)
	d.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestGoogleSignIn_VerifyFailure(t *testing.T) {
	svc, d := newService(t)

	d.google.On("Verify", mock.Anything, "bad").
		Return(nil, errors.New("malformed google token: "+domain.ErrUnauthorized.Error()))

	_, err := svc.GoogleSignIn(context.Background(), domain.GoogleLoginRequest{IDToken: "bad"})
	require.Error(t, err)
	d.users.AssertNotCalled(t, "GetByGoogleSub", mock.Anything, mock.Anything)
}

// --- registration ---

func TestRegisterEmail_NewUser(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").Return(nil, domain.ErrNotFound)
	u := &domain.User{UserID: "u3", DisplayName: "Ada"}
	d.resolver.On("Resolve", mock.Anything, identity.KeyEmail, mock.MatchedBy(func(c identity.Candidates) bool {
		return c.Email != nil && *c.Email == "ada@mail.com" && c.GoogleSub == nil
	}), "Ada", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")) == nil
	})).Return(u, false, nil)
	expectToken(d, "u3")

	res, err := svc.RegisterEmail(context.Background(), domain.RegistrationRequest{
		Name: "Ada", Email: " Ada@Mail.com ", Password: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, res.UserExisted)
	assert.Equal(t, "signed.u3", res.AccessToken)
}

func TestRegisterEmail_DuplicateEmail(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").
		Return(&domain.User{UserID: "u3"}, nil)

	_, err := svc.RegisterEmail(context.Background(), domain.RegistrationRequest{
		Name: "Ada", Email: "ada@mail.com", Password: "secret1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	d.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- email sign-in ---

func TestEmailSignIn_UnknownWithoutNameNeedsRegistration(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "new@mail.com").Return(nil, domain.ErrNotFound)

	res, err := svc.EmailSignIn(context.Background(), domain.EmailAuthRequest{Email: "new@mail.com"})
	require.NoError(t, err)
	assert.True(t, res.NeedsRegistration)
	assert.Nil(t, res.SignIn)
	d.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEmailSignIn_UnknownWithNameCreates(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "new@mail.com").Return(nil, domain.ErrNotFound)
	u := &domain.User{UserID: "u4", DisplayName: "Grace"}
	d.resolver.On("Resolve", mock.Anything, identity.KeyEmail, mock.Anything, "Grace", "").Return(u, false, nil)
	expectToken(d, "u4")

	res, err := svc.EmailSignIn(context.Background(), domain.EmailAuthRequest{
		Email: "new@mail.com", Name: strPtr("Grace"),
	})
	require.NoError(t, err)
	assert.False(t, res.NeedsRegistration)
	require.NotNil(t, res.SignIn)
	assert.False(t, res.SignIn.UserExisted)
}

func TestEmailSignIn_ExistingUser(t *testing.T) {
	svc, d := newService(t)

	u := &domain.User{UserID: "u5"}
	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").Return(u, nil)
	d.resolver.On("Resolve", mock.Anything, identity.KeyEmail, mock.Anything, "", "").Return(u, true, nil)
	expectToken(d, "u5")

	res, err := svc.EmailSignIn(context.Background(), domain.EmailAuthRequest{Email: "ada@mail.com"})
	require.NoError(t, err)
	require.NotNil(t, res.SignIn)
	assert.True(t, res.SignIn.UserExisted)
}

// --- OTP request ---

func TestRequestEmailOTP_DeliversCode(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").Return(&domain.User{UserID: "u1"}, nil)
	d.otps.On("Send", mock.Anything, "ada@mail.com").Return("123456", nil)
	d.mail.On("SendEmail", "ada@mail.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "123456") && strings.Contains(body, "valid for 10 minutes")
	})).Return(nil)

	exists, err := svc.RequestEmailOTP(context.Background(), domain.EmailSendOTPRequest{Email: "Ada@Mail.com"})
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRequestEmailOTP_UnknownUserStillGetsCode(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "new@mail.com").Return(nil, domain.ErrNotFound)
	d.otps.On("Send", mock.Anything, "new@mail.com").Return("654321", nil)
	d.mail.On("SendEmail", "new@mail.com", mock.Anything, mock.Anything).Return(nil)

	exists, err := svc.RequestEmailOTP(context.Background(), domain.EmailSendOTPRequest{Email: "new@mail.com"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRequestEmailOTP_DeliveryFailure(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByEmail", mock.Anything, "ada@mail.com").Return(&domain.User{UserID: "u1"}, nil)
	d.otps.On("Send", mock.Anything, "ada@mail.com").Return("123456", nil)
	d.mail.On("SendEmail", "ada@mail.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	_, err := svc.RequestEmailOTP(context.Background(), domain.EmailSendOTPRequest{Email: "ada@mail.com"})
	require.Error(t, err)
}

func TestRequestPhoneOTP_DeliversCode(t *testing.T) {
	svc, d := newService(t)

	d.users.On("GetByPhone", mock.Anything, "+15550001111").Return(nil, domain.ErrNotFound)
	d.otps.On("Send", mock.Anything, "+15550001111").Return("222333", nil)
	d.sms.On("SendSMS", mock.Anything, "+15550001111", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "222333")
	})).Return(nil)

	exists, err := svc.RequestPhoneOTP(context.Background(), domain.PhoneSendOTPRequest{PhoneNumber: " +15550001111 "})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRequestPhoneOTP_SenderNotConfigured(t *testing.T) {
	_, d := newService(t)
	svc := NewService(ServiceDeps{
		Users:          d.users,
		Resolver:       d.resolver,
		OTPStore:       d.otps,
		Mailer:         d.mail,
		GoogleVerifier: d.google,
		Tokens:         d.tokens,
		OTPExpiry:      10 * time.Minute,
	})

	_, err := svc.RequestPhoneOTP(context.Background(), domain.PhoneSendOTPRequest{PhoneNumber: "+15550001111"})
	require.Error(t, err)
	d.otps.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

// --- OTP verify ---

func TestVerifyEmailOTP_InvalidCode(t *testing.T) {
	svc, d := newService(t)

	d.otps.On("Verify", mock.Anything, "ada@mail.com", "000000").Return(false, nil)

	_, err := svc.VerifyEmailOTP(context.Background(), domain.EmailVerifyOTPRequest{
		Email: "ada@mail.com", OTP: "000000",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	d.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmailOTP_ValidCodeSignsIn(t *testing.T) {
	svc, d := newService(t)

	d.otps.On("Verify", mock.Anything, "ada@mail.com", "123456").Return(true, nil)
	u := &domain.User{UserID: "u6"}
	d.resolver.On("Resolve", mock.Anything, identity.KeyEmail, mock.MatchedBy(func(c identity.Candidates) bool {
		return c.Email != nil && *c.Email == "ada@mail.com"
	}), "Ada", "").Return(u, false, nil)
	expectToken(d, "u6")

	res, err := svc.VerifyEmailOTP(context.Background(), domain.EmailVerifyOTPRequest{
		Email: "Ada@Mail.com", OTP: "123456", Name: strPtr("Ada"),
	})
	require.NoError(t, err)
	assert.Equal(t, "signed.u6", res.AccessToken)
	assert.False(t, res.UserExisted)
}

func TestVerifyPhoneOTP_ValidCodeSignsIn(t *testing.T) {
	svc, d := newService(t)

	d.otps.On("Verify", mock.Anything, "+15550001111", "123456").Return(true, nil)
	u := &domain.User{UserID: "u7"}
	d.resolver.On("Resolve", mock.Anything, identity.KeyPhone, mock.MatchedBy(func(c identity.Candidates) bool {
		return c.PhoneNumber != nil && *c.PhoneNumber == "+15550001111"
	}), "", "").Return(u, true, nil)
	expectToken(d, "u7")

	res, err := svc.VerifyPhoneOTP(context.Background(), domain.PhoneVerifyOTPRequest{
		PhoneNumber: "+15550001111", OTP: "123456",
	})
	require.NoError(t, err)
	assert.True(t, res.UserExisted)
}

func TestVerifyPhoneOTP_InvalidCode(t *testing.T) {
	svc, d := newService(t)

	d.otps.On("Verify", mock.Anything, "+15550001111", "999999").Return(false, nil)

	_, err := svc.VerifyPhoneOTP(context.Background(), domain.PhoneVerifyOTPRequest{
		PhoneNumber: "+15550001111", OTP: "999999",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

