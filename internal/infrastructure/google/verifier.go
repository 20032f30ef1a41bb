package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/biolens/auth-api/internal/domain"
	"google.golang.org/api/idtoken"
)

// Payload holds the verified claims extracted from a Google ID token.
type Payload struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
}

// Verifier verifies Google ID tokens against a specific OAuth client ID.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

// Verify validates the Google ID token and returns the extracted payload.
// Failures come back wrapped in domain.ErrUnauthorized with a classified
// reason (expired, malformed, wrong audience) so the handler can answer with
// something more useful than "verification failed".
func (v *Verifier) Verify(ctx context.Context, token string) (*Payload, error) {
	p, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", classifyError(err), domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	name, _ := p.Claims["name"].(string)
	return &Payload{
		Sub:           p.Subject,
		Email:         email,
		EmailVerified: emailVerified,
		Name:          name,
	}, nil
}

func classifyError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return "google token expired"
	case strings.Contains(msg, "audience"):
		return "google token not issued for this app"
	case strings.Contains(msg, "segments") || strings.Contains(msg, "malformed") || strings.Contains(msg, "decode"):
		return "malformed google token"
	default:
		return "google token verification failed"
	}
}
