package checkout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

// Event builds the envelope announcing a successful result. ok is false for
// failed results, which are never published.
func (r Result) Event(producer, traceID string) (topic string, env orders.Envelope, ok bool) {
	if !r.Success {
		return "", orders.Envelope{}, false
	}
	eventType, topic := orders.EventOrderCompleted, orders.TopicOrderCompleted
	if r.Order.Status == orders.StatusCancelled {
		eventType, topic = orders.EventOrderCancelled, orders.TopicOrderCancelled
	}

	p := orders.PayloadFromOrder(r.Order)
	p.Movements = len(r.StockMovements)
	p.CashEntries = len(r.CashMovements)
	p.Titles = len(r.Titles)
	payload, err := json.Marshal(p)
	if err != nil {
		return "", orders.Envelope{}, false
	}

	return topic, orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: r.Order.ID,
		Payload:       payload,
	}, true
}
