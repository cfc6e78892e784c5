/**
 * @description
 * This package provides the RabbitMQ producer and consumer shared by all
 * SkillSwap services. Events cross service boundaries only through these
 * helpers: producers publish event envelopes to durable topic exchanges, and
 * consumers bind per-routing-key handlers to a service-owned queue.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 * - github.com/skillswap/skillswap-backend/pkg/events: Event envelope contract.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// EventProducer holds the RabbitMQ connection and channel for publishing.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// Publisher is the interface implemented by types that can publish event
// envelopes to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange string, envelope events.Envelope) error
	Close()
}

// FallbackProducer is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup. Events stay in the local outbox and are published
// once the broker comes back.
type FallbackProducer struct{}

func (p *FallbackProducer) Publish(ctx context.Context, exchange string, envelope events.Envelope) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"publish skipped\" exchange=%s event_type=%s event_id=%s", exchange, envelope.EventType, envelope.EventID)
	return errors.New("rabbitmq unavailable")
}

func (p *FallbackProducer) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from the first
	// occurrence of amqp.
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer creates and returns a new EventProducer.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch}, nil
}

// Publish sends an event envelope to the given exchange. The envelope's
// event type is used as the routing key, so consumers bind on the stable
// dotted type names. Messages are persistent: a broker restart must not lose
// an event the outbox has already marked published.
func (p *EventProducer) Publish(ctx context.Context, exchange string, envelope events.Envelope) error {
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"exchange declare failed; reopening channel\" exchange=%s err=%v", exchange, err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("level=error component=rabbitmq_producer msg=\"json marshal failed\" exchange=%s event_type=%s err=%v", exchange, envelope.EventType, err)
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    envelope.EventID,
		Timestamp:    envelope.OccurredOn,
		Type:         envelope.EventType,
		Body:         body,
	}

	err = p.channel.PublishWithContext(ctx, exchange, envelope.EventType, false, false, publishing)
	if err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"publish failed; reopening channel\" exchange=%s event_type=%s err=%v", exchange, envelope.EventType, err)
		// One-shot retry: reopen channel and try again.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return err
		}
		p.channel = ch
		if exErr := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); exErr != nil {
			return err
		}
		return p.channel.PublishWithContext(ctx, exchange, envelope.EventType, false, false, publishing)
	}
	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
