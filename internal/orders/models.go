package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             string
	DepositID      string
	CustomerID     string
	CustomerName   string
	Address        string
	Mode           Mode
	Items          []OrderItem
	Payments       []Payment
	Total          decimal.Decimal
	Status         Status         // lihat status.go
	DeliveryStatus DeliveryStatus // diisi dispatcher, bukan orchestrator
	CreatedAt      time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	History        []HistoryEntry
}

// MovementOverride is the cashier's sale-time choice for products that can be
// sold either as an exchange or as a full container.
type MovementOverride string

const (
	OverrideNone     MovementOverride = ""
	OverrideExchange MovementOverride = "EXCHANGE"
	OverrideFull     MovementOverride = "FULL"
)

type OrderItem struct {
	ProductID        string
	ProductName      string
	Quantity         int
	UnitPrice        decimal.Decimal
	Modality         Modality
	MovementOverride MovementOverride
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Payment struct {
	MethodID   string
	MethodName string
	Amount     decimal.Decimal
}

type HistoryEntry struct {
	At     time.Time
	Status Status
	Note   string
	Actor  string
}

func (o Order) IsDelivery() bool { return o.Mode == ModeDelivery }

func (o Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (o Order) PaymentsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range o.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Clone returns a deep copy so callers can derive a new order without
// touching the snapshot they were given.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem(nil), o.Items...)
	c.Payments = append([]Payment(nil), o.Payments...)
	c.History = append([]HistoryEntry(nil), o.History...)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return c
}
