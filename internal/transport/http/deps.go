package http

import (
	"github.com/biolens/auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/biolens/auth-api/internal/infrastructure/google"
	jwtinfra "github.com/biolens/auth-api/internal/infrastructure/jwt"
	s3infra "github.com/biolens/auth-api/internal/infrastructure/s3"
	"github.com/biolens/auth-api/internal/infrastructure/smtp"
	"github.com/biolens/auth-api/internal/infrastructure/sns"
	"github.com/biolens/auth-api/internal/otp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	FaceRepo       *dynamo.FaceRepo
	OTPStore       otp.Store
	S3Store        *s3infra.Store
	Mailer         smtp.Mailer
	SMSSender      sns.SMSSender
	GoogleVerifier *googleinfra.Verifier
	JWTProvider    *jwtinfra.Provider
}
