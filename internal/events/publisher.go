// Package events publishes verification outcomes to RabbitMQ so downstream
// systems (account onboarding, the review tooling) can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	DefaultExchange = "verification.events"
	source          = "idcheck"

	RoutingDecided  = "verification.decided"
	RoutingReviewed = "verification.reviewed"
)

// Event is the envelope of every published message.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// Decided is the payload of verification.decided and verification.reviewed.
type Decided struct {
	VerificationID       uuid.UUID                 `json:"verification_id"`
	UserID               uuid.UUID                 `json:"user_id"`
	Status               domain.VerificationStatus `json:"status"`
	Decision             domain.Decision           `json:"decision"`
	Confidence           float64                   `json:"confidence"`
	RiskScore            float64                   `json:"risk_score"`
	RiskLevel            domain.RiskLevel          `json:"risk_level,omitempty"`
	RequiresManualReview bool                      `json:"requires_manual_review"`
	ReviewerID           string                    `json:"reviewer_id,omitempty"`
}

func NewEvent(eventType, correlationID string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Data:          raw,
	}, nil
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes decision events to a topic exchange.
type Publisher struct {
	channel  Channel
	exchange string
	logger   *slog.Logger
}

// NewPublisher declares the durable topic exchange and returns a publisher for it.
func NewPublisher(channel Channel, exchange string, logger *slog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		channel:  channel,
		exchange: exchange,
		logger:   logger.With("component", "events"),
	}, nil
}

// Publish wraps data in an Event and publishes it under routingKey. The
// verification ID is used as correlation ID.
func (p *Publisher) Publish(ctx context.Context, routingKey string, verificationID uuid.UUID, data any) error {
	event, err := NewEvent(routingKey, verificationID.String(), data)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     event.ID,
			CorrelationId: event.CorrelationID,
			Timestamp:     event.Timestamp,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("routing_key", routingKey),
		slog.String("event_id", event.ID),
		slog.String("verification_id", verificationID.String()),
	)

	return nil
}

// NoOpPublisher discards events. Used when AMQP is not configured.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, string, uuid.UUID, any) error {
	return nil
}
