package item

import (
	"time"

	"github.com/google/uuid"

	"github.com/NeighborShare/service-booking/internal/apperr"
)

// Item is a shareable thing offered by its owner. Bookings reference items
// by ID only; ownership is always resolved through the catalog.
type Item struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	name        string
	description string
	available   bool

	createdAt time.Time
	updatedAt time.Time
}

// NewItem creates a new Item owned by the given user.
func NewItem(ownerID uuid.UUID, name, description string, available bool) (*Item, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.NewValidationError("owner ID is required")
	}
	if name == "" {
		return nil, apperr.NewValidationError("item name is required")
	}
	if description == "" {
		return nil, apperr.NewValidationError("item description is required")
	}

	now := time.Now().UTC()
	return &Item{
		id:          uuid.New(),
		ownerID:     ownerID,
		name:        name,
		description: description,
		available:   available,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds an Item from persistence data (no validation).
func Reconstruct(id, ownerID uuid.UUID, name, description string, available bool, createdAt, updatedAt time.Time) *Item {
	return &Item{
		id:          id,
		ownerID:     ownerID,
		name:        name,
		description: description,
		available:   available,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (i *Item) ID() uuid.UUID        { return i.id }
func (i *Item) OwnerID() uuid.UUID   { return i.ownerID }
func (i *Item) Name() string         { return i.name }
func (i *Item) Description() string  { return i.description }
func (i *Item) Available() bool      { return i.available }
func (i *Item) CreatedAt() time.Time { return i.createdAt }
func (i *Item) UpdatedAt() time.Time { return i.updatedAt }

// IsOwnedBy reports whether the item belongs to the given user.
func (i *Item) IsOwnedBy(userID uuid.UUID) bool {
	return i.ownerID == userID
}

// Update applies a partial update. Nil fields are left untouched.
func (i *Item) Update(name, description *string, available *bool) {
	if name != nil && *name != "" {
		i.name = *name
	}
	if description != nil && *description != "" {
		i.description = *description
	}
	if available != nil {
		i.available = *available
	}
	i.updatedAt = time.Now().UTC()
}
