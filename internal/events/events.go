package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/kafka"
)

// TopicBookingEvents carries the booking lifecycle events.
const TopicBookingEvents = "booking.events"

// Booking lifecycle event types.
const (
	BookingRequested = "booking.requested"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCanceled  = "booking.canceled"
)

// BookingEvent is the payload for every booking lifecycle event.
type BookingEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ItemID     uuid.UUID `json:"item_id"`
	BookerID   uuid.UUID `json:"booker_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Publishing is best effort:
// failures are logged and never fail the originating request.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a Publisher on top of the given producer.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish emits one booking lifecycle event of the given type.
func (p *Publisher) Publish(ctx context.Context, eventType string, evt BookingEvent) {
	evt.OccurredAt = time.Now().UTC()

	ce, err := kafka.NewCloudEvent("service-booking", eventType, evt)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, TopicBookingEvents, evt.BookingID.String(), ce); err != nil {
		p.logger.Error("failed to publish booking event",
			zap.String("event_type", eventType),
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
	}
}
