package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-depot-engine/internal/kafka"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
	"github.com/ariefcatur/go-depot-engine/internal/redisx"
)

// Service turns order.completed events into delivery jobs.
type Service struct {
	Dispatcher  *Dispatcher
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderCompleted: dipasang sebagai handler consumer.
func (s *Service) HandleOrderCompleted(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		s.Log.Warn("drop undecodable message", zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderCompleted {
		return nil
	}

	// dedup via Redis (pakai event_id), key di-set setelah sukses
	if s.Redis != nil {
		if seen, _ := redisx.Exists(ctx, s.Redis, redisx.DedupKey(s.ServiceName, env.EventID)); seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPayload](env.Payload)
	if err != nil {
		s.Log.Warn("drop bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	job, err := s.Dispatcher.CreateFromOrder(ctx, p.ToOrder())
	if err != nil {
		return err
	}
	if job == nil {
		s.Log.Debug("order is not a delivery", zap.String("order_id", p.OrderID))
	}

	if s.Redis != nil {
		if _, err := redisx.MarkOnce(ctx, s.Redis, s.ServiceName, env.EventID); err != nil {
			s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	return nil
}

// EventPublisher publishes job changes to delivery.job.updated.
type EventPublisher struct {
	Producer    *kafkax.Producer
	ServiceName string
}

func (p *EventPublisher) JobUpdated(_ context.Context, j Job, reason string) {
	p.Producer.PublishEnvelope(JobEnvelope(j, reason, p.ServiceName))
}

func JobEnvelope(j Job, reason, producer string) orders.Envelope {
	payload, _ := json.Marshal(orders.DeliveryJobPayload{
		JobID:     j.ID,
		OrderID:   j.OrderID,
		DepositID: j.DepositID,
		Status:    string(j.Status),
		DriverID:  j.DriverID,
		Reason:    reason,
	})
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventDeliveryJobUpdated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: j.OrderID,
		Payload:       payload,
	}
}
