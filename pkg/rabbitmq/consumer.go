package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// HandlerFunc processes a decoded event envelope. The returned bool reports
// whether the delivery should be acknowledged; false re-queues the message
// for redelivery, so handlers must be idempotent.
type HandlerFunc func(envelope events.Envelope) bool

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch}, nil
}

// ConsumeWithBindings declares the exchange and a durable queue, binds one
// routing key per handler, and starts a goroutine dispatching deliveries to
// the handler registered for their routing key. The binding table is fixed at
// startup: an event type with no handler is acknowledged and dropped.
func (c *Consumer) ConsumeWithBindings(exchange, queueName string, bindings map[string]HandlerFunc) error {
	if len(bindings) == 0 {
		return fmt.Errorf("no bindings provided")
	}

	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	handlers := make(map[string]HandlerFunc)
	for routingKey, handler := range bindings {
		if handler == nil {
			continue
		}
		handlers[routingKey] = handler
		if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			handler, ok := handlers[d.RoutingKey]
			if !ok {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"no handler for routing key; dropping\" queue=%s routing_key=%s", queueName, d.RoutingKey)
				d.Ack(false)
				continue
			}

			var envelope events.Envelope
			if err := json.Unmarshal(d.Body, &envelope); err != nil {
				// Malformed envelopes can never succeed; ack to drop.
				log.Printf("level=error component=rabbitmq_consumer msg=\"malformed envelope; dropping\" queue=%s routing_key=%s err=%v", queueName, d.RoutingKey, err)
				d.Ack(false)
				continue
			}

			if handler(envelope) {
				d.Ack(false)
			} else {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"handler failed; re-queuing\" queue=%s routing_key=%s event_id=%s", queueName, d.RoutingKey, envelope.EventID)
				d.Nack(false, true)
			}
		}
	}()

	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
