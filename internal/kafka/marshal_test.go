package kafka

import (
	"encoding/json"
	"testing"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

func TestUnwrapPayload(t *testing.T) {
	t.Parallel()
	env := orders.Envelope{EventType: orders.EventOrderCompleted, Payload: MustMarshal(orders.OrderPayload{OrderID: "o1", Mode: orders.ModeDelivery})}
	var got orders.Envelope
	if err := UnmarshalEnvelope(MustMarshal(env), &got); err != nil {
		t.Fatal(err)
	}
	p, err := UnwrapPayload[orders.OrderPayload](got.Payload)
	if err != nil || p.OrderID != "o1" || p.Mode != orders.ModeDelivery {
		t.Fatalf("payload = %+v, %v", p, err)
	}
	if _, err := UnwrapPayload[orders.OrderPayload](json.RawMessage(`[1,2]`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTopicsUnknown(t *testing.T) {
	t.Parallel()
	if err := (Topics{}).PublishTo("nope", orders.Envelope{}); err == nil {
		t.Fatal("unknown topic accepted")
	}
}
