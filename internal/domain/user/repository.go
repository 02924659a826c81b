package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for users.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindAll(ctx context.Context) ([]*User, error)

	// ExistsByEmail reports whether another user (excluding the given ID,
	// if non-nil) already uses the email.
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)

	Save(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
