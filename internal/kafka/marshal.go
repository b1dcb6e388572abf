package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func UnmarshalEnvelope(b []byte, out any) error {
	return json.Unmarshal(b, out)
}

// Unwrap memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// PublishEnvelope sends env keyed by its correlation id with the usual
// type/version headers.
func (p *Producer) PublishEnvelope(env orders.Envelope) {
	p.Publish(orders.PartitionKey(env.CorrelationID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

// Topics routes envelopes to the producer that owns their topic.
type Topics map[string]*Producer

func (t Topics) PublishTo(topic string, env orders.Envelope) error {
	p, ok := t[topic]
	if !ok {
		return fmt.Errorf("no producer for topic %s", topic)
	}
	p.PublishEnvelope(env)
	return nil
}

// Start launches every producer loop.
func (t Topics) Start(ctx context.Context) {
	for _, p := range t {
		p.Start(ctx)
	}
}

// Close flushes every producer and waits for the writers to close.
func (t Topics) Close() {
	for _, p := range t {
		p.Close()
	}
	for _, p := range t {
		p.WaitClosed()
	}
}
