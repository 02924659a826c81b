package item

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for items. The booking core
// only ever reads through FindByID; the rest serves the catalog endpoints.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*Item, error)

	// Search returns available items whose name or description contains the
	// given text, case-insensitively.
	Search(ctx context.Context, text string) ([]*Item, error)

	Save(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}
