// Package events publishes booking lifecycle events so downstream
// consumers (notifications, analytics) can react without coupling to the
// booking service.
package events

import (
	"context"
	"time"

	"bookwell/pkg/kafka"
	"bookwell/pkg/logger"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingCheckedIn = "booking.checked_in"

	schemaVersion = "1"
)

// BookingEvent is the payload shared by all booking lifecycle events.
type BookingEvent struct {
	BookingID      string    `json:"booking_id"`
	OrganizationID string    `json:"organization_id"`
	ClientID       string    `json:"client_id"`
	SessionID      string    `json:"session_id,omitempty"`
	SpaceID        string    `json:"space_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Implementations must not fail
// the calling operation; a lost event is logged, not surfaced.
type Publisher interface {
	BookingCreated(ctx context.Context, evt BookingEvent)
	BookingCancelled(ctx context.Context, evt BookingEvent)
	BookingCheckedIn(ctx context.Context, evt BookingEvent)
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, evt BookingEvent) {
	p.publish(ctx, TypeBookingCreated, evt)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, evt BookingEvent) {
	p.publish(ctx, TypeBookingCancelled, evt)
}

func (p *kafkaPublisher) BookingCheckedIn(ctx context.Context, evt BookingEvent) {
	p.publish(ctx, TypeBookingCheckedIn, evt)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, evt BookingEvent) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	msg := kafka.NewMessage().
		WithKey(evt.BookingID).
		WithValue(evt).
		WithEventType(eventType).
		WithSource(p.source).
		WithHeader(kafka.HeaderSchemaVersion, schemaVersion).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("publishing booking event failed",
			"event_type", eventType,
			"booking_id", evt.BookingID,
			"error", err)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) BookingCreated(context.Context, BookingEvent) {}

func (NoopPublisher) BookingCancelled(context.Context, BookingEvent) {}

func (NoopPublisher) BookingCheckedIn(context.Context, BookingEvent) {}

func (NoopPublisher) Close() error { return nil }
