package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/NeighborShare/service-booking/internal/apperr"
)

// Booking is the aggregate root for the booking domain. A booking reserves
// one item for one half-open time interval on behalf of one booker. Only the
// status ever changes after creation.
type Booking struct {
	id       uuid.UUID
	interval Interval
	itemID   uuid.UUID
	bookerID uuid.UUID
	status   Status

	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking in WAITING state after validating the
// interval. Item availability, ownership and conflict checks belong to the
// application layer, which can consult the catalog and the store.
func NewBooking(bookerID, itemID uuid.UUID, interval Interval) (*Booking, error) {
	if bookerID == uuid.Nil {
		return nil, apperr.NewValidationError("booker ID is required")
	}
	if itemID == uuid.Nil {
		return nil, apperr.NewValidationError("item ID is required")
	}
	if interval.IsZero() {
		return nil, apperr.NewValidationError("start and end dates are required")
	}

	now := time.Now().UTC()
	if interval.Start.Before(now) {
		return nil, apperr.NewValidationError("start date must not be in the past")
	}
	if !interval.Start.Before(interval.End) {
		return nil, apperr.NewValidationError("start date must be strictly before end date")
	}

	return &Booking{
		id:        uuid.New(),
		interval:  interval,
		itemID:    itemID,
		bookerID:  bookerID,
		status:    StatusWaiting,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	interval Interval,
	itemID, bookerID uuid.UUID,
	status Status,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:        id,
		interval:  interval,
		itemID:    itemID,
		bookerID:  bookerID,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// Interval returns the reserved time interval.
func (b *Booking) Interval() Interval { return b.interval }

// ItemID returns the reserved item's identifier.
func (b *Booking) ItemID() uuid.UUID { return b.itemID }

// BookerID returns the requesting user's identifier.
func (b *Booking) BookerID() uuid.UUID { return b.bookerID }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Decide transitions the booking from WAITING to APPROVED or REJECTED.
// The approval-time conflict re-check is the store's responsibility and
// happens inside its conditional-approve primitive.
func (b *Booking) Decide(approve bool) error {
	target := StatusRejected
	if approve {
		target = StatusApproved
	}
	if !b.status.CanTransitionTo(target) {
		return apperr.NewValidationError("booking has already been decided")
	}
	b.status = target
	b.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions the booking from WAITING to CANCELED.
func (b *Booking) Cancel() error {
	if !b.status.CanTransitionTo(StatusCanceled) {
		return apperr.NewValidationError("only waiting bookings can be canceled")
	}
	b.status = StatusCanceled
	b.updatedAt = time.Now().UTC()
	return nil
}

// IsBookedBy reports whether the booking belongs to the given booker.
func (b *Booking) IsBookedBy(userID uuid.UUID) bool {
	return b.bookerID == userID
}
