package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for booking aggregates.
// The store is the sole mutator of booking records.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByBookerID retrieves all bookings made by the given user,
	// newest start date first.
	FindByBookerID(ctx context.Context, bookerID uuid.UUID) ([]*Booking, error)

	// FindByItemOwnerID retrieves all bookings against items owned by the
	// given user, newest start date first.
	FindByItemOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*Booking, error)

	// FindApprovedByItemID retrieves the APPROVED bookings for an item.
	FindApprovedByItemID(ctx context.Context, itemID uuid.UUID) ([]*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, b *Booking) error

	// UpdateStatus persists a status transition, conditional on the record
	// still being in WAITING state. Returns a conflict error if the booking
	// was decided by a concurrent request.
	UpdateStatus(ctx context.Context, b *Booking) error

	// ApproveIfNoOverlap atomically transitions the booking to APPROVED,
	// but only if no currently-APPROVED booking for the same item overlaps
	// its interval. The check and the write execute under a per-item
	// serialization point so that of two concurrent overlapping approvals
	// at most one can ever succeed. Returns a validation error on overlap
	// and a conflict error if the booking is no longer WAITING.
	ApproveIfNoOverlap(ctx context.Context, b *Booking) error
}
