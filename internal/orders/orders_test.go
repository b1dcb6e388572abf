package orders

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusInProgress, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusCancelled, true},
		{StatusPending, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestModalityMovesStock(t *testing.T) {
	t.Parallel()
	for m, want := range map[Modality]bool{
		ModalitySale: true, ModalityExchange: true, ModalityOther: true,
		ModalityLoan: false, ModalityGift: false, "": false,
	} {
		if got := m.MovesStock(); got != want {
			t.Errorf("%q.MovesStock() = %v", m, got)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()
	o := Order{
		ID:       "o1",
		Items:    []OrderItem{{ProductID: "a", Quantity: 1}},
		Payments: []Payment{{MethodID: "cash", Amount: decimal.NewFromInt(5)}},
		History:  []HistoryEntry{{Status: StatusPending}},
	}
	c := o.Clone()
	c.Items[0].Quantity = 9
	c.Payments[0].MethodID = "card"
	c.History = append(c.History, HistoryEntry{Status: StatusCompleted})

	if o.Items[0].Quantity != 1 || o.Payments[0].MethodID != "cash" || len(o.History) != 1 {
		t.Fatalf("original changed: %+v", o)
	}
}

func TestTotals(t *testing.T) {
	t.Parallel()
	o := Order{
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("5")},
		},
		Payments: []Payment{{Amount: decimal.NewFromInt(20)}, {Amount: decimal.NewFromInt(10)}},
	}
	if !o.ItemsTotal().Equal(decimal.NewFromInt(30)) || !o.PaymentsTotal().Equal(decimal.NewFromInt(30)) {
		t.Fatalf("items=%s payments=%s", o.ItemsTotal(), o.PaymentsTotal())
	}
}

func TestPayloadKeepsDispatchFields(t *testing.T) {
	t.Parallel()
	o := Order{
		ID: "o1", DepositID: "d1", CustomerName: "Ana", Address: "Rua 1", Mode: ModeDelivery,
		Items:    []OrderItem{{ProductID: "p", ProductName: "Gas", Quantity: 2, UnitPrice: decimal.NewFromInt(50), Modality: ModalitySale}},
		Payments: []Payment{{MethodID: "cash", MethodName: "Cash", Amount: decimal.NewFromInt(100)}},
	}
	back := PayloadFromOrder(o).ToOrder()
	if back.ID != "o1" || !back.IsDelivery() || back.Address != "Rua 1" || back.Items[0].Quantity != 2 || back.Payments[0].MethodName != "Cash" {
		t.Fatalf("order = %+v", back)
	}
	if string(PartitionKey("o1")) != "o1" {
		t.Fatal("partition key should be the order id")
	}
}
