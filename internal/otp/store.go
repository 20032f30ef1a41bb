// Package otp issues and verifies single-use, time-bounded numeric codes keyed
// by the login identifier (email address or phone number). Codes are keyed by
// identifier rather than user ID because the user may not exist yet when the
// code is sent.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

// Store holds pending OTP codes. One active code per identifier: a new Send
// overwrites any prior code, and a successful Verify consumes it.
type Store interface {
	// Send generates a fresh code for identifier, replacing any existing one,
	// and returns it. Delivering the code out-of-band is the caller's job.
	Send(ctx context.Context, identifier string) (string, error)

	// Verify reports whether code matches the active code for identifier.
	// A match consumes the code; an expired code is purged and rejected; a
	// mismatch leaves the code in place so the user may retry until expiry.
	Verify(ctx context.Context, identifier, code string) (bool, error)
}

// GenerateCode returns a uniformly random numeric code of CodeLength digits.
// Leading zeros are valid, so the space is exactly 10^CodeLength.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
