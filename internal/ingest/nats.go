// Package ingest subscribes to a live feed of raw WMO bulletin text and
// feeds each payload through the decoder. A WMO GTS feed publishes bulletin
// text directly rather than a JSON envelope, so this subscriber hands the
// raw payload straight to bulletin.ParseBulletin and the message decoders
// instead of unmarshalling a wrapper struct first.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"wmosonde/internal/aggregate"
	"wmosonde/internal/bulletin"
	"wmosonde/internal/decode"
	"wmosonde/internal/station"
)

// Result is what one ingested bulletin produced: its correlation id, how
// many messages and levels it decoded, and the resulting aggregator state
// (scoped to just this bulletin's messages — callers merge it into a
// longer-lived aggregator themselves if they're accumulating).
type Result struct {
	RunID        string
	MessageCount int
	LevelCount   int
	Aggregator   *aggregate.Aggregator
	Err          error
}

// Handler is called once per ingested bulletin.
type Handler func(Result)

// Subscriber consumes raw bulletin text from a NATS subject and decodes
// each message it contains.
type Subscriber struct {
	conn     *nats.Conn
	subject  string
	stations *station.Table
}

// NewSubscriber connects to a NATS server and prepares a subscriber for the
// given subject. stations may be nil; it is passed straight through to the
// decoder for TTAA surface-elevation lookups.
func NewSubscriber(url, subject string, stations *station.Table) (*Subscriber, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Subscriber{conn: conn, subject: subject, stations: stations}, nil
}

// Close drains and closes the underlying NATS connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}

// Run subscribes to the configured subject and invokes handler for every
// bulletin received, until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		handler(s.decode(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return ctx.Err()
}

// decode runs a single raw bulletin payload through the full decode and
// aggregation pipeline, tagging the run with a fresh UUID so storage and
// logs can correlate every level it produced back to this delivery.
func (s *Subscriber) decode(payload []byte) Result {
	runID := uuid.NewString()
	agg := aggregate.NewAggregator()

	msgs := bulletin.ParseBulletin(string(payload))
	levelCount := 0
	for _, msg := range msgs {
		levels := decode.Decode(msg, s.stations)
		levelCount += len(levels)
		agg.Insert(msg, levels)
	}

	return Result{
		RunID:        runID,
		MessageCount: len(msgs),
		LevelCount:   levelCount,
		Aggregator:   agg,
	}
}

// Publish sends raw bulletin text to a subject, used by test harnesses and
// the sonde_decode CLI's "publish" subcommand to simulate a GTS feed without
// a real relay in front of NATS.
func Publish(url, subject, text string) error {
	conn, err := nats.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer conn.Close()

	if err := conn.Publish(subject, []byte(text)); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return conn.FlushTimeout(5 * time.Second)
}
