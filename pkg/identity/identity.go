// Package identity reconciles identities asserted by the external identity
// provider with the local User records.
//
// Registration is idempotent: the first registration of an email creates the
// User, every later one returns the stored record unchanged. Concurrent
// registrations of the same email are resolved by the store's atomic
// insert-or-fetch primitive, so exactly one User is ever stored.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
)

// UserStore is the persistence the service needs. Implementations return
// storage.ErrNotFound for missing records.
type UserStore interface {
	// CreateUserIfAbsent atomically inserts u unless a user with the same
	// email or external id already exists. It returns the stored user and
	// true when u was inserted, or the existing user and false otherwise.
	CreateUserIfAbsent(ctx context.Context, u *api.User) (*api.User, bool, error)

	GetUser(ctx context.Context, id uuid.UUID) (*api.User, error)
	GetUserByEmail(ctx context.Context, email string) (*api.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*api.User, error)
	ListUsers(ctx context.Context) ([]*api.User, error)
	UserExists(ctx context.Context, email string) (bool, error)

	// UpdateUser overwrites the profile fields of an existing user.
	UpdateUser(ctx context.Context, u *api.User) error

	// DeleteUser removes a user and all products it owns.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Profile is an identity asserted by the identity provider together with the
// profile fields supplied at registration.
type Profile struct {
	Name        string
	Email       string
	Nationality string
	AvatarURL   string
	ExternalID  string
}

// Sentinel errors.
var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrReconciliationFailed is returned when registration could neither
	// create nor fetch the user. It is a server fault, never "not found".
	ErrReconciliationFailed = errors.New("user lookup or creation failed")
)
