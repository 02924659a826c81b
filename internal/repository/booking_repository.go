package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NeighborShare/service-booking/internal/apperr"
	bookingDomain "github.com/NeighborShare/service-booking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartDate time.Time `gorm:"not null;index"`
	EndDate   time.Time `gorm:"not null"`
	ItemID    uuid.UUID `gorm:"type:uuid;index;not null"`
	BookerID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Status    string    `gorm:"not null;size:20;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model), nil
}

// FindByBookerID retrieves all bookings made by the given user, newest start first.
func (r *GormBookingRepository) FindByBookerID(ctx context.Context, bookerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("booker_id = ?", bookerID).
		Order("start_date DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings by booker: %w", err)
	}
	return toDomainBookings(models), nil
}

// FindByItemOwnerID retrieves all bookings against items owned by the given
// user, newest start first. Ownership is resolved with a join against the
// items table rather than stored redundantly on the booking.
func (r *GormBookingRepository) FindByItemOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN items ON items.id = bookings.item_id").
		Where("items.owner_id = ?", ownerID).
		Order("bookings.start_date DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings by item owner: %w", err)
	}
	return toDomainBookings(models), nil
}

// FindApprovedByItemID retrieves the APPROVED bookings for an item.
func (r *GormBookingRepository) FindApprovedByItemID(ctx context.Context, itemID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, string(bookingDomain.StatusApproved)).
		Order("start_date DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find approved bookings for item: %w", err)
	}
	return toDomainBookings(models), nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, b *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(b)).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// UpdateStatus persists a status transition, conditional on the stored record
// still being WAITING. A lost race surfaces as a conflict instead of
// silently overwriting another actor's decision.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, b *bookingDomain.Booking) error {
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ?", b.ID(), string(bookingDomain.StatusWaiting)).
		Updates(map[string]interface{}{
			"status":     string(b.Status()),
			"updated_at": b.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewConflictError("booking was decided by another request")
	}
	return nil
}

// ApproveIfNoOverlap atomically transitions the booking to APPROVED unless a
// currently-APPROVED booking for the same item overlaps its interval.
//
// The transaction first locks the item row, serializing all approvals for the
// same item. Row locks on existing APPROVED bookings alone would not be
// enough: with no APPROVED row yet, two concurrent approvals would each lock
// an empty set and both commit.
func (r *GormBookingRepository) ApproveIfNoOverlap(ctx context.Context, b *bookingDomain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item ItemModel
		if err := tx.Model(&ItemModel{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", b.ItemID()).
			Take(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NewNotFoundError("Item", b.ItemID().String())
			}
			return fmt.Errorf("failed to lock item for approval: %w", err)
		}

		var conflicting BookingModel
		err := tx.Model(&BookingModel{}).
			Where("item_id = ? AND status = ?", b.ItemID(), string(bookingDomain.StatusApproved)).
			Where("start_date < ? AND end_date > ?", b.Interval().End, b.Interval().Start).
			Take(&conflicting).Error
		if err == nil {
			return apperr.NewValidationError("item is already booked for the requested period")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for overlapping bookings: %w", err)
		}

		result := tx.Model(&BookingModel{}).
			Where("id = ? AND status = ?", b.ID(), string(bookingDomain.StatusWaiting)).
			Updates(map[string]interface{}{
				"status":     string(bookingDomain.StatusApproved),
				"updated_at": b.UpdatedAt(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to approve booking: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NewConflictError("booking was decided by another request")
		}
		return nil
	})
}

// --- Conversion Helpers ---

func toBookingModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:        b.ID(),
		StartDate: b.Interval().Start,
		EndDate:   b.Interval().End,
		ItemID:    b.ItemID(),
		BookerID:  b.BookerID(),
		Status:    string(b.Status()),
		CreatedAt: b.CreatedAt(),
		UpdatedAt: b.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) *bookingDomain.Booking {
	return bookingDomain.Reconstruct(
		m.ID,
		bookingDomain.Interval{Start: m.StartDate, End: m.EndDate},
		m.ItemID,
		m.BookerID,
		bookingDomain.Status(m.Status),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainBookings(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toDomainBooking(&models[i])
	}
	return bookings
}
