package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/skillswap/skillswap-backend/pkg/events"
	"github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

const (
	defaultBatchSize       = 50
	defaultPollInterval    = 1200 * time.Millisecond
	defaultStaleProcessing = 2 * time.Minute
)

// Dispatcher drains the outbox onto the bus. One instance runs per
// publishing service. The producer connection is created lazily and dropped
// on publish failure so the next flush reconnects cleanly.
type Dispatcher struct {
	store               Store
	rabbitURL           string
	batchSize           int
	pollInterval        time.Duration
	staleProcessingTime time.Duration
	producer            rabbitmq.Publisher
	newProducer         func(url string) (rabbitmq.Publisher, error)
}

func NewDispatcher(store Store, rabbitURL string) *Dispatcher {
	return &Dispatcher{
		store:               store,
		rabbitURL:           rabbitURL,
		batchSize:           defaultBatchSize,
		pollInterval:        defaultPollInterval,
		staleProcessingTime: defaultStaleProcessing,
		newProducer: func(url string) (rabbitmq.Publisher, error) {
			return rabbitmq.NewEventProducer(url)
		},
	}
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	defer d.closeProducer()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.flushOnce(ctx); err != nil {
				log.Printf("level=warn component=outbox_dispatcher msg=\"flush failed\" err=%v", err)
			}
		}
	}
}

func (d *Dispatcher) flushOnce(ctx context.Context) error {
	staleAfterSeconds := int(d.staleProcessingTime.Seconds())
	messages, err := d.store.ClaimMessages(ctx, d.batchSize, staleAfterSeconds)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	for _, message := range messages {
		if err := d.publishMessage(ctx, message); err != nil {
			retryAfter := retryDelaySeconds(message.Attempts)
			_ = d.store.MarkFailed(ctx, message.ID, retryAfter, err.Error())
			continue
		}
		if err := d.store.MarkPublished(ctx, message.ID); err != nil {
			log.Printf("level=error component=outbox_dispatcher msg=\"failed to mark message published\" outbox_id=%d err=%v", message.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) publishMessage(ctx context.Context, message Message) error {
	if d.producer == nil {
		producer, err := d.newProducer(d.rabbitURL)
		if err != nil {
			return err
		}
		d.producer = producer
	}

	var envelope events.Envelope
	if err := json.Unmarshal(message.Envelope, &envelope); err != nil {
		return err
	}

	if err := d.producer.Publish(ctx, message.Exchange, envelope); err != nil {
		d.closeProducer()
		return err
	}
	return nil
}

func (d *Dispatcher) closeProducer() {
	if d.producer != nil {
		d.producer.Close()
		d.producer = nil
	}
}

func retryDelaySeconds(attempt int) int {
	if attempt < 1 {
		return 1
	}
	delay := 1 << min(attempt, 8)
	if delay > 300 {
		return 300
	}
	return delay
}
