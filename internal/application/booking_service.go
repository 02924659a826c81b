package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/apperr"
	bookingDomain "github.com/NeighborShare/service-booking/internal/domain/booking"
	itemDomain "github.com/NeighborShare/service-booking/internal/domain/item"
	userDomain "github.com/NeighborShare/service-booking/internal/domain/user"
	"github.com/NeighborShare/service-booking/internal/events"
)

// maxApprovalAttempts bounds the internal retry of the conditional-approve
// write when the transaction itself fails (deadlock, serialization). Business
// outcomes (overlap, already decided) are never retried.
const maxApprovalAttempts = 3

// CreateBookingRequest holds the data needed to request a booking.
type CreateBookingRequest struct {
	ItemID uuid.UUID `json:"item_id" binding:"required"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

// ItemSummary is the resolved item representation embedded in booking responses.
type ItemSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BookerSummary is the resolved booker representation embedded in booking responses.
type BookerSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID     uuid.UUID     `json:"id"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Status string        `json:"status"`
	Item   ItemSummary   `json:"item"`
	Booker BookerSummary `json:"booker"`
}

// EventPublisher emits booking lifecycle events. Satisfied by events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, evt events.BookingEvent)
}

// BookingService orchestrates the booking lifecycle: request validation,
// the status state machine, authorization of transitions, and the
// filtered/paginated listings.
type BookingService struct {
	bookings  bookingDomain.Repository
	items     itemDomain.Repository
	users     userDomain.Repository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.Repository,
	items itemDomain.Repository,
	users userDomain.Repository,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		items:     items,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateBooking validates and persists a new WAITING booking for the
// requester. Only APPROVED bookings block creation; concurrent WAITING
// requests for overlapping intervals may coexist and are resolved at
// approval time.
func (s *BookingService) CreateBooking(ctx context.Context, requesterID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	booker, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	it, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if it.IsOwnedBy(requesterID) {
		return nil, apperr.NewValidationError("cannot book your own item")
	}
	if !it.Available() {
		return nil, apperr.NewValidationError("item is not available for booking")
	}

	b, err := bookingDomain.NewBooking(requesterID, req.ItemID, bookingDomain.Interval{Start: req.Start, End: req.End})
	if err != nil {
		return nil, err
	}

	approved, err := s.bookings.FindApprovedByItemID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	for _, existing := range approved {
		if existing.Interval().Overlaps(b.Interval()) {
			return nil, apperr.NewValidationError("item is already booked for the requested period")
		}
	}

	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID().String()),
		zap.String("item_id", it.ID().String()),
		zap.String("booker_id", requesterID.String()),
	)
	s.publisher.Publish(ctx, events.BookingRequested, s.toEvent(b, it))

	dto := toBookingDTO(b, it, booker)
	return &dto, nil
}

// SetApproval lets the item's owner approve or reject a WAITING booking.
// Approval re-checks the overlap against currently-APPROVED bookings inside
// the store's atomic primitive: of two concurrently approved overlapping
// requests only the first can win.
func (s *BookingService) SetApproval(ctx context.Context, actorID, bookingID uuid.UUID, approve bool) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	it, err := s.items.FindByID(ctx, b.ItemID())
	if err != nil {
		return nil, err
	}
	if !it.IsOwnedBy(actorID) {
		return nil, apperr.NewUnauthorizedError("only the item's owner may decide a booking")
	}

	if err := b.Decide(approve); err != nil {
		return nil, err
	}

	if approve {
		if err := s.approveWithRetry(ctx, b); err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, events.BookingApproved, s.toEvent(b, it))
	} else {
		if err := s.bookings.UpdateStatus(ctx, b); err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, events.BookingRejected, s.toEvent(b, it))
	}

	s.logger.Info("booking decided",
		zap.String("booking_id", b.ID().String()),
		zap.String("status", b.Status().String()),
	)

	booker, err := s.users.FindByID(ctx, b.BookerID())
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(b, it, booker)
	return &dto, nil
}

// approveWithRetry drives the conditional-approve primitive, retrying a
// bounded number of times when the transaction fails for infrastructure
// reasons. Overlap and lost-decision outcomes surface immediately.
func (s *BookingService) approveWithRetry(ctx context.Context, b *bookingDomain.Booking) error {
	var lastErr error
	for attempt := 1; attempt <= maxApprovalAttempts; attempt++ {
		err := s.bookings.ApproveIfNoOverlap(ctx, b)
		if err == nil {
			return nil
		}

		var validationErr *apperr.ValidationError
		var conflictErr *apperr.ConflictError
		if errors.As(err, &validationErr) || errors.As(err, &conflictErr) {
			return err
		}

		lastErr = err
		s.logger.Warn("conditional approve failed, retrying",
			zap.String("booking_id", b.ID().String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return apperr.NewConflictError("could not decide booking: " + lastErr.Error())
}

// Cancel lets the booker withdraw a booking that is still WAITING.
func (s *BookingService) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsBookedBy(actorID) {
		return nil, apperr.NewUnauthorizedError("only the booker may cancel a booking")
	}

	if err := b.Cancel(); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(ctx, b); err != nil {
		return nil, err
	}

	it, err := s.items.FindByID(ctx, b.ItemID())
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking canceled", zap.String("booking_id", b.ID().String()))
	s.publisher.Publish(ctx, events.BookingCanceled, s.toEvent(b, it))

	booker, err := s.users.FindByID(ctx, b.BookerID())
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(b, it, booker)
	return &dto, nil
}

// GetBooking retrieves a booking for either of its two parties.
func (s *BookingService) GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	it, err := s.items.FindByID(ctx, b.ItemID())
	if err != nil {
		return nil, err
	}
	if !b.IsBookedBy(actorID) && !it.IsOwnedBy(actorID) {
		return nil, apperr.NewUnauthorizedError("booking is only visible to the booker and the item's owner")
	}

	booker, err := s.users.FindByID(ctx, b.BookerID())
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(b, it, booker)
	return &dto, nil
}

// GetUserBookings lists the bookings made by the given user, filtered by
// state and windowed by offset/limit, newest start date first.
func (s *BookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, state bookingDomain.FilterState, from, size int) ([]BookingDTO, error) {
	if err := bookingDomain.ValidatePage(from, size); err != nil {
		return nil, err
	}
	booker, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	all, err := s.bookings.FindByBookerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := bookingDomain.Window(bookingDomain.Filter(all, state, time.Now().UTC()), from, size)

	dtos := make([]BookingDTO, 0, len(page))
	itemCache := make(map[uuid.UUID]*itemDomain.Item)
	for _, b := range page {
		it, err := s.cachedItem(ctx, itemCache, b.ItemID())
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, toBookingDTO(b, it, booker))
	}
	return dtos, nil
}

// GetOwnerBookings lists bookings against the given owner's items, filtered
// by state and windowed by offset/limit, newest start date first.
func (s *BookingService) GetOwnerBookings(ctx context.Context, ownerID uuid.UUID, state bookingDomain.FilterState, from, size int) ([]BookingDTO, error) {
	if err := bookingDomain.ValidatePage(from, size); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}

	all, err := s.bookings.FindByItemOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	page := bookingDomain.Window(bookingDomain.Filter(all, state, time.Now().UTC()), from, size)

	dtos := make([]BookingDTO, 0, len(page))
	itemCache := make(map[uuid.UUID]*itemDomain.Item)
	userCache := make(map[uuid.UUID]*userDomain.User)
	for _, b := range page {
		it, err := s.cachedItem(ctx, itemCache, b.ItemID())
		if err != nil {
			return nil, err
		}
		booker, ok := userCache[b.BookerID()]
		if !ok {
			booker, err = s.users.FindByID(ctx, b.BookerID())
			if err != nil {
				return nil, err
			}
			userCache[b.BookerID()] = booker
		}
		dtos = append(dtos, toBookingDTO(b, it, booker))
	}
	return dtos, nil
}

func (s *BookingService) cachedItem(ctx context.Context, cache map[uuid.UUID]*itemDomain.Item, id uuid.UUID) (*itemDomain.Item, error) {
	if it, ok := cache[id]; ok {
		return it, nil
	}
	it, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = it
	return it, nil
}

func (s *BookingService) toEvent(b *bookingDomain.Booking, it *itemDomain.Item) events.BookingEvent {
	return events.BookingEvent{
		BookingID: b.ID(),
		ItemID:    b.ItemID(),
		BookerID:  b.BookerID(),
		OwnerID:   it.OwnerID(),
		Start:     b.Interval().Start,
		End:       b.Interval().End,
		Status:    b.Status().String(),
	}
}

func toBookingDTO(b *bookingDomain.Booking, it *itemDomain.Item, booker *userDomain.User) BookingDTO {
	return BookingDTO{
		ID:     b.ID(),
		Start:  b.Interval().Start,
		End:    b.Interval().End,
		Status: b.Status().String(),
		Item:   ItemSummary{ID: it.ID(), Name: it.Name()},
		Booker: BookerSummary{ID: booker.ID(), Name: booker.Name()},
	}
}
