package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-depot-engine/internal/kafka"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

func completedMessage(t *testing.T, o orders.Order, eventType string) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(orders.PayloadFromOrder(o))
	if err != nil {
		t.Fatal(err)
	}
	env := orders.Envelope{
		EventID:       "evt-1",
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: o.ID,
		Payload:       payload,
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness()
	svc := &Service{Dispatcher: h.d, ServiceName: "dispatch-test", Log: zap.NewNop()}

	if err := svc.HandleOrderCompleted(ctx, completedMessage(t, deliveryOrder("o1"), orders.EventOrderCompleted)); err != nil {
		t.Fatal(err)
	}
	// redelivery of the same order keeps a single job
	if err := svc.HandleOrderCompleted(ctx, completedMessage(t, deliveryOrder("o1"), orders.EventOrderCompleted)); err != nil {
		t.Fatal(err)
	}
	jobs, _ := h.d.List(ctx)
	if len(jobs) != 1 || jobs[0].OrderID != "o1" || jobs[0].Snapshot.CustomerName != "Ana" {
		t.Fatalf("jobs = %+v", jobs)
	}

	if err := svc.HandleOrderCompleted(ctx, completedMessage(t, deliveryOrder("o2"), orders.EventOrderCancelled)); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleOrderCompleted(ctx, kafkago.Message{Value: []byte("{not json")}); err != nil {
		t.Fatalf("undecodable message should be dropped, got %v", err)
	}
	if jobs, _ := h.d.List(ctx); len(jobs) != 1 {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestJobEnvelope(t *testing.T) {
	t.Parallel()
	env := JobEnvelope(Job{ID: "j1", OrderID: "o1", DepositID: "d1", Status: StatusAssigned, DriverID: "drv"}, "assigned", "svc")
	if env.EventType != orders.EventDeliveryJobUpdated || env.CorrelationID != "o1" {
		t.Fatalf("env = %+v", env)
	}
	p, err := kafkax.UnwrapPayload[orders.DeliveryJobPayload](env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if p.JobID != "j1" || p.Status != "ASSIGNED" || p.DriverID != "drv" || p.Reason != "assigned" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestSweeperStopsWithContext(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(h.d, 5*time.Millisecond, nil).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
