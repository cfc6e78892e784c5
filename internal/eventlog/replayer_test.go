package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

type logStub struct {
	events []StoredEvent
	err    error
}

func (s *logStub) Since(ctx context.Context, from time.Time) ([]StoredEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []StoredEvent
	for _, ev := range s.events {
		if !ev.OccurredOn.Before(from) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type publisherStub struct {
	published []events.Envelope
	failAfter int
}

func (p *publisherStub) Publish(ctx context.Context, exchange string, envelope events.Envelope) error {
	if p.failAfter > 0 && len(p.published) >= p.failAfter {
		return errors.New("broker gone")
	}
	p.published = append(p.published, envelope)
	return nil
}

func (p *publisherStub) Close() {}

func storedAt(t time.Time, eventType string) StoredEvent {
	return StoredEvent{
		ID:         uuid.New(),
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Data:       []byte(`{"match_id":"m-1"}`),
		OccurredOn: t,
	}
}

func TestReplayPublishesEventsFromCutoffInOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	log := &logStub{events: []StoredEvent{
		storedAt(base, events.TypeMatchAccepted),
		storedAt(base.Add(time.Hour), events.TypeMatchCompleted),
		storedAt(base.Add(2*time.Hour), events.TypeMatchDissolved),
	}}
	pub := &publisherStub{}
	r := NewReplayer(log, pub, events.MatchEventsExchange)

	n, err := r.Replay(context.Background(), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 replayed events, got %d", n)
	}
	if pub.published[0].EventType != events.TypeMatchCompleted {
		t.Fatalf("expected match.completed first, got %s", pub.published[0].EventType)
	}
	if pub.published[1].EventType != events.TypeMatchDissolved {
		t.Fatalf("expected match.dissolved second, got %s", pub.published[1].EventType)
	}
}

func TestReplayStopsOnFirstPublishFailure(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	log := &logStub{events: []StoredEvent{
		storedAt(base, events.TypeMatchAccepted),
		storedAt(base.Add(time.Minute), events.TypeMatchRejected),
		storedAt(base.Add(2*time.Minute), events.TypeMatchExpired),
	}}
	pub := &publisherStub{failAfter: 1}
	r := NewReplayer(log, pub, events.MatchEventsExchange)

	n, err := r.Replay(context.Background(), base)
	if err == nil {
		t.Fatal("expected error when broker fails mid-replay")
	}
	if n != 1 {
		t.Fatalf("expected 1 published before failure, got %d", n)
	}
}

func TestReplaySurfacesLogErrors(t *testing.T) {
	log := &logStub{err: errors.New("connection refused")}
	r := NewReplayer(log, &publisherStub{}, events.UserEventsExchange)

	if _, err := r.Replay(context.Background(), time.Time{}); err == nil {
		t.Fatal("expected log error to surface")
	}
}

func TestStoredEventEnvelopeRoundTrip(t *testing.T) {
	ev := storedAt(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), events.TypeMatchAccepted)
	env := ev.Envelope()
	if env.EventID != ev.EventID || env.EventType != ev.EventType {
		t.Fatalf("envelope identity mismatch: %+v vs %+v", env, ev)
	}
	if !env.OccurredOn.Equal(ev.OccurredOn) {
		t.Fatalf("occurred_on mismatch: %v vs %v", env.OccurredOn, ev.OccurredOn)
	}
	if string(env.Payload) != string(ev.Data) {
		t.Fatalf("payload mismatch: %s vs %s", env.Payload, ev.Data)
	}
}
