package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

// Log is the read side of the event log needed for replay.
type Log interface {
	Since(ctx context.Context, from time.Time) ([]StoredEvent, error)
}

// Replayer re-publishes stored events onto the bus. Consumers tolerate the
// resulting duplicates; their handlers are idempotent.
type Replayer struct {
	log      Log
	producer rabbitmq.Publisher
	exchange string
}

func NewReplayer(log Log, producer rabbitmq.Publisher, exchange string) *Replayer {
	return &Replayer{log: log, producer: producer, exchange: exchange}
}

// Replay publishes every stored event with occurred_on >= from, in log
// order, and returns how many were published. The first publish failure
// aborts the run so a broker outage does not spin through the whole log.
func (r *Replayer) Replay(ctx context.Context, from time.Time) (int, error) {
	stored, err := r.log.Since(ctx, from)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range stored {
		if err := r.producer.Publish(ctx, r.exchange, ev.Envelope()); err != nil {
			return published, fmt.Errorf("replaying event %s: %w", ev.EventID, err)
		}
		published++
	}
	return published, nil
}
