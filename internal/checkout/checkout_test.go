package checkout

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/finance"
	"github.com/ariefcatur/go-depot-engine/internal/inventory"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

var fixedNow = time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)

func newOrchestrator() *Orchestrator {
	n := 0
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithActor("cashier-1"),
	)
}

func fixtures() (*catalog.Catalog, catalog.PaymentMethods) {
	c := catalog.NewCatalog([]catalog.Product{
		{ID: "p13", Name: "Gas P13", MovementRule: catalog.RuleExchange, ReturnProductID: "p13-empty"},
		{ID: "p13-empty", Name: "Empty P13", Kind: catalog.KindEmptyContainer},
		{ID: "fee", Name: "Delivery fee", IsDeliveryFee: true},
	})
	m := catalog.NewPaymentMethods([]catalog.PaymentMethod{
		{ID: "card", Name: "Card", Timing: catalog.TimingImmediate, FeePercent: decimal.NewFromInt(3)},
		{ID: "boleto", Name: "Boleto", Timing: catalog.TimingDeferred, GeneratesReceivable: true},
		{ID: "fiado", Name: "Fiado", Timing: "ON_ACCOUNT"},
	})
	return c, m
}

func exchangeOrder() orders.Order {
	return orders.Order{
		ID:        "ord-1",
		DepositID: "dep-1",
		Mode:      orders.ModeDelivery,
		Status:    orders.StatusPending,
		Items: []orders.OrderItem{
			{ProductID: "p13", ProductName: "Gas P13", Quantity: 2, UnitPrice: decimal.NewFromInt(50), Modality: orders.ModalityExchange},
		},
		Payments: []orders.Payment{{MethodID: "card", MethodName: "Card", Amount: decimal.NewFromInt(100)}},
	}
}

func stock(qty int) []inventory.Balance {
	return []inventory.Balance{{DepositID: "dep-1", ProductID: "p13", Quantity: qty}}
}

func TestCompleteExchangeWithCardFee(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	o := exchangeOrder()
	res := newOrchestrator().Complete(o, stock(5), c, m)
	if !res.Success {
		t.Fatalf("complete failed: %v", res.Errors)
	}
	if res.Order.Status != orders.StatusCompleted || res.PreviousStatus != orders.StatusPending {
		t.Fatalf("status %s (prev %s)", res.Order.Status, res.PreviousStatus)
	}
	if res.Order.CompletedAt == nil || !res.Order.CompletedAt.Equal(fixedNow) {
		t.Fatalf("completed_at = %v", res.Order.CompletedAt)
	}
	if o.Status != orders.StatusPending || len(o.History) != 0 {
		t.Fatal("input order was mutated")
	}
	if n := len(res.Order.History); n != 1 || res.Order.History[0].Note != "order completed" {
		t.Fatalf("history = %+v", res.Order.History)
	}

	sm := res.StockMovements
	if len(sm) != 2 {
		t.Fatalf("stock movements = %d, want 2", len(sm))
	}
	if sm[0].ProductID != "p13" || sm[0].Direction != inventory.DirectionOut || sm[0].Quantity != 2 {
		t.Fatalf("out = %+v", sm[0])
	}
	if sm[1].ProductID != "p13-empty" || sm[1].Direction != inventory.DirectionIn || sm[1].Quantity != 2 {
		t.Fatalf("in = %+v", sm[1])
	}

	if len(res.CashMovements) != 1 {
		t.Fatalf("cash movements = %d", len(res.CashMovements))
	}
	cm := res.CashMovements[0]
	if !cm.Gross.Equal(decimal.NewFromInt(100)) || !cm.Net.Equal(decimal.NewFromInt(97)) || cm.Direction != finance.DirectionIn {
		t.Fatalf("cash = %+v", cm)
	}
	if !res.NeedsDispatch() {
		t.Fatal("delivery order should need dispatch")
	}
}

func TestCancelReversesCompletion(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	orch := newOrchestrator()
	done := orch.Complete(exchangeOrder(), stock(5), c, m)
	if !done.Success {
		t.Fatalf("complete failed: %v", done.Errors)
	}

	res := orch.Cancel(done.Order, c, m)
	if !res.Success {
		t.Fatalf("cancel failed: %v", res.Errors)
	}
	if res.Order.Status != orders.StatusCancelled || res.Order.CancelledAt == nil {
		t.Fatalf("order = %+v", res.Order)
	}
	if len(res.Titles) != 0 {
		t.Fatal("cancel must not open titles")
	}
	if len(res.StockMovements) != len(done.StockMovements) {
		t.Fatalf("reverse movements = %d", len(res.StockMovements))
	}
	for i, mv := range res.StockMovements {
		if mv.Direction != done.StockMovements[i].Direction.Opposite() || mv.Origin != inventory.OriginOrderCancelled {
			t.Fatalf("row %d = %+v", i, mv)
		}
	}
	if cm := res.CashMovements[0]; cm.Direction != finance.DirectionOut || !cm.Net.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("reverse cash = %+v", cm)
	}
	if res.NeedsDispatch() {
		t.Fatal("cancelled order must not be dispatched")
	}
	if n := len(res.Order.History); n != 2 || res.Order.History[1].Status != orders.StatusCancelled {
		t.Fatalf("history = %+v", res.Order.History)
	}
}

func TestCompletePreconditions(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	tests := []struct {
		name    string
		mutate  func(o *orders.Order)
		stock   int
		wantErr string
	}{
		{
			name:    "already completed",
			mutate:  func(o *orders.Order) { o.Status = orders.StatusCompleted },
			stock:   5,
			wantErr: "cannot be completed from status COMPLETED",
		},
		{
			name:    "cancelled",
			mutate:  func(o *orders.Order) { o.Status = orders.StatusCancelled },
			stock:   5,
			wantErr: "cannot be completed from status CANCELLED",
		},
		{
			name:    "short stock",
			mutate:  func(*orders.Order) {},
			stock:   1,
			wantErr: "insufficient stock for Gas P13: required 2, available 1, missing 1",
		},
		{
			name:    "totals mismatch",
			mutate:  func(o *orders.Order) { o.Payments[0].Amount = decimal.RequireFromString("99.98") },
			stock:   5,
			wantErr: "payments total 99.98 does not match items total 100.00",
		},
		{
			name:    "unknown method",
			mutate:  func(o *orders.Order) { o.Payments[0].MethodID = "pix" },
			stock:   5,
			wantErr: "payment method pix not found",
		},
		{
			name:    "unknown timing",
			mutate:  func(o *orders.Order) { o.Payments[0].MethodID = "fiado" },
			stock:   5,
			wantErr: `payment method fiado has unknown timing "ON_ACCOUNT"`,
		},
		{
			name:    "in progress from outside",
			mutate:  func(o *orders.Order) { o.Status = orders.StatusInProgress; o.Items[0].Quantity = 0 },
			stock:   5,
			wantErr: "invalid quantity 0 for product p13",
		},
		{
			name: "unknown product",
			mutate: func(o *orders.Order) {
				o.Items = append(o.Items, orders.OrderItem{ProductID: "ghost", Quantity: 1, Modality: orders.ModalitySale})
			},
			stock:   5,
			wantErr: "product ghost not found in catalog",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := exchangeOrder()
			tt.mutate(&o)
			res := newOrchestrator().Complete(o, stock(tt.stock), c, m)
			if res.Success {
				t.Fatal("expected failure")
			}
			if !containsErr(res.Errors, tt.wantErr) {
				t.Fatalf("errors %q do not contain %q", res.Errors, tt.wantErr)
			}
			if res.Order.Status != o.Status || len(res.StockMovements) != 0 || len(res.CashMovements) != 0 {
				t.Fatalf("failed result carries changes: %+v", res)
			}
		})
	}
}

func TestCompleteReportsAllProblems(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	o := exchangeOrder()
	o.Payments[0].MethodID = "pix"
	o.Payments[0].Amount = decimal.NewFromInt(10)
	res := newOrchestrator().Complete(o, stock(0), c, m)
	if len(res.Errors) != 3 {
		t.Fatalf("errors = %q, want 3", res.Errors)
	}
}

func TestCancelRequiresCompleted(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	for _, st := range []orders.Status{orders.StatusPending, orders.StatusInProgress, orders.StatusCancelled} {
		o := exchangeOrder()
		o.Status = st
		if res := newOrchestrator().Cancel(o, c, m); res.Success {
			t.Errorf("cancel from %s succeeded", st)
		}
	}
}

func TestCompleteDeferredOpensTitle(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	o := exchangeOrder()
	o.Mode = orders.ModeCounter
	o.Payments = []orders.Payment{{MethodID: "boleto", Amount: decimal.NewFromInt(100)}}
	res := newOrchestrator().Complete(o, stock(2), c, m)
	if !res.Success {
		t.Fatalf("complete failed: %v", res.Errors)
	}
	if len(res.CashMovements) != 0 || len(res.Titles) != 1 {
		t.Fatalf("cash=%d titles=%d", len(res.CashMovements), len(res.Titles))
	}
	if due := res.Titles[0].DueDate; !due.Equal(fixedNow.AddDate(0, 0, 30)) {
		t.Fatalf("due = %v", due)
	}
	if res.NeedsDispatch() {
		t.Fatal("counter order must not be dispatched")
	}
}

func TestResultEvent(t *testing.T) {
	t.Parallel()

	c, m := fixtures()
	res := newOrchestrator().Complete(exchangeOrder(), stock(5), c, m)
	topic, env, ok := res.Event("depot-api", "trace-1")
	if !ok || topic != orders.TopicOrderCompleted || env.EventType != orders.EventOrderCompleted {
		t.Fatalf("topic=%s type=%s ok=%v", topic, env.EventType, ok)
	}
	if env.CorrelationID != "ord-1" || env.TraceID != "trace-1" {
		t.Fatalf("envelope = %+v", env)
	}
	var p orders.OrderPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Movements != 2 || p.CashEntries != 1 || p.Titles != 0 {
		t.Fatalf("payload counts = %+v", p)
	}

	failed := newOrchestrator().Complete(exchangeOrder(), stock(0), c, m)
	if _, _, ok := failed.Event("depot-api", ""); ok {
		t.Fatal("failed result must not produce an event")
	}
}

func containsErr(errs []string, want string) bool {
	for _, e := range errs {
		if strings.Contains(e, want) {
			return true
		}
	}
	return false
}
