package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NeighborShare/service-booking/internal/apperr"
)

// User is a registered account. Bookings and items reference users by ID;
// the directory resolves display names for presentation.
type User struct {
	id    uuid.UUID
	name  string
	email string

	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates a new User with a validated name and email.
func NewUser(name, email string) (*User, error) {
	if name == "" {
		return nil, apperr.NewValidationError("user name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.NewValidationError("a valid email is required")
	}

	now := time.Now().UTC()
	return &User{
		id:        uuid.New(),
		name:      name,
		email:     email,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(id uuid.UUID, name, email string, createdAt, updatedAt time.Time) *User {
	return &User{
		id:        id,
		name:      name,
		email:     email,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Name() string         { return u.name }
func (u *User) Email() string        { return u.email }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Update applies a partial update. Nil fields are left untouched.
func (u *User) Update(name, email *string) error {
	if name != nil && *name != "" {
		u.name = *name
	}
	if email != nil && *email != "" {
		if !strings.Contains(*email, "@") {
			return apperr.NewValidationError("a valid email is required")
		}
		u.email = *email
	}
	u.updatedAt = time.Now().UTC()
	return nil
}
