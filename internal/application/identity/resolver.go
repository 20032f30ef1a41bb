// Package identity owns the find-or-create protocol shared by every sign-in
// channel. All three channels (Google token, email OTP, phone OTP) race each
// other for the same logical person; the resolver is the single place where
// that race is reconciled.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biolens/auth-api/internal/domain"
	"github.com/biolens/auth-api/internal/pkg/id"
)

// Key names the candidate key a channel resolves by. It picks the default
// display name for new accounts and the recheck key after a create conflict.
type Key int

const (
	KeyGoogle Key = iota
	KeyEmail
	KeyPhone
)

// Candidates carries whichever identity keys the channel knows about.
type Candidates struct {
	Email       *string
	PhoneNumber *string
	GoogleSub   *string
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	BackfillGoogleSub(ctx context.Context, userID, sub string) error
}

// Resolver finds the user matching a set of candidate keys, or creates one.
type Resolver struct {
	users userStore
}

func NewResolver(users userStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve looks the user up by the supplied candidate keys in fixed precedence
// order — google_sub, then email, then phone — and returns (user, true) on a
// hit after patching it, or creates a new verified user and returns
// (user, false).
//
// Creation is check-then-create-then-recheck: no locks are taken, and the
// store's uniqueness rejection is the serialization point. When a concurrent
// request wins the insert race, the conflict is swallowed and the winner's row
// is fetched by the primary key; only a recheck that still finds nothing is a
// genuine persistence fault.
func (r *Resolver) Resolve(ctx context.Context, primary Key, c Candidates, nameHint, passwordHash string) (*domain.User, bool, error) {
	if c.Email == nil && c.PhoneNumber == nil && c.GoogleSub == nil {
		return nil, false, fmt.Errorf("no identity key supplied: %w", domain.ErrBadRequest)
	}

	u, err := r.lookupOrdered(ctx, c)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if u != nil {
		if err := r.patch(ctx, u, c, nameHint); err != nil {
			return nil, false, err
		}
		return u, true, nil
	}

	u, err = r.create(ctx, primary, c, nameHint, passwordHash)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, false, err
	}

	// Lost the insert race: the same person signed in twice in parallel and
	// the other request created the row first. Adopt it.
	existing, lerr := r.lookupPrimary(ctx, primary, c)
	if lerr != nil {
		if errors.Is(lerr, domain.ErrNotFound) {
			// Not a lost race after all: deliberately not wrapped as a
			// conflict, the caller must treat this as a fatal store fault.
			return nil, false, fmt.Errorf("user creation failed and recheck found nothing (cause: %v)", err)
		}
		return nil, false, lerr
	}
	return existing, true, nil
}

// lookupOrdered tries the candidate keys in precedence order and returns the
// first hit. A user found by google_sub wins even when the supplied email
// belongs to a different record.
func (r *Resolver) lookupOrdered(ctx context.Context, c Candidates) (*domain.User, error) {
	lookups := []struct {
		val *string
		get func(context.Context, string) (*domain.User, error)
	}{
		{c.GoogleSub, r.users.GetByGoogleSub},
		{c.Email, r.users.GetByEmail},
		{c.PhoneNumber, r.users.GetByPhone},
	}
	for _, l := range lookups {
		if l.val == nil {
			continue
		}
		u, err := l.get(ctx, *l.val)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no user for any candidate key: %w", domain.ErrNotFound)
}

func (r *Resolver) lookupPrimary(ctx context.Context, primary Key, c Candidates) (*domain.User, error) {
	switch primary {
	case KeyGoogle:
		if c.GoogleSub == nil {
			return nil, fmt.Errorf("google_sub required: %w", domain.ErrBadRequest)
		}
		return r.users.GetByGoogleSub(ctx, *c.GoogleSub)
	case KeyEmail:
		if c.Email == nil {
			return nil, fmt.Errorf("email required: %w", domain.ErrBadRequest)
		}
		return r.users.GetByEmail(ctx, *c.Email)
	default:
		if c.PhoneNumber == nil {
			return nil, fmt.Errorf("phone_number required: %w", domain.ErrBadRequest)
		}
		return r.users.GetByPhone(ctx, *c.PhoneNumber)
	}
}

// patch applies the found-path updates in place and persists them: replace a
// placeholder display name when a real hint arrived, backfill google_sub, and
// force the account verified.
func (r *Resolver) patch(ctx context.Context, u *domain.User, c Candidates, nameHint string) error {
	updates := map[string]interface{}{}
	if nameHint != "" && domain.IsPlaceholderName(u.DisplayName) && nameHint != u.DisplayName {
		u.DisplayName = nameHint
		updates["display_name"] = nameHint
	}
	if !u.IsVerified {
		u.IsVerified = true
		updates["is_verified"] = true
	}
	if len(updates) > 0 {
		if err := r.users.Update(ctx, u.UserID, updates); err != nil {
			return err
		}
	}

	if c.GoogleSub != nil && u.GoogleSub == nil {
		err := r.users.BackfillGoogleSub(ctx, u.UserID, *c.GoogleSub)
		switch {
		case err == nil:
			u.GoogleSub = c.GoogleSub
		case errors.Is(err, domain.ErrConflict):
			// Another account already owns this subject. Sign-in itself was
			// proven by the channel, so keep going without the link.
			slog.Warn("google sub already linked elsewhere, skipping backfill",
				"user_id", u.UserID)
		default:
			return err
		}
	}
	return nil
}

func (r *Resolver) create(ctx context.Context, primary Key, c Candidates, nameHint, passwordHash string) (*domain.User, error) {
	name := nameHint
	if name == "" {
		name = defaultName(primary)
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		DisplayName:  name,
		Email:        c.Email,
		PhoneNumber:  c.PhoneNumber,
		GoogleSub:    c.GoogleSub,
		PasswordHash: passwordHash,
		IsVerified:   true,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func defaultName(primary Key) string {
	switch primary {
	case KeyGoogle:
		return domain.PlaceholderGoogleUser
	case KeyPhone:
		return domain.PlaceholderPhoneUser
	default:
		return domain.PlaceholderEmailUser
	}
}
