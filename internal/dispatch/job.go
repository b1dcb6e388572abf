// Package dispatch routes delivery orders to drivers. A job moves through a
// guarded state machine; an operation that does not apply to the job's
// current state returns a nil job and leaves it untouched.
package dispatch

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

const (
	DefaultAssignTimeout = 60 * time.Second
	ReasonNoResponse     = "driver did not respond in time"
)

type SnapshotItem struct {
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Snapshot is the display copy of the order taken when the job is created.
// Later edits to the order do not reach it.
type Snapshot struct {
	CustomerName string          `json:"customer_name"`
	Address      string          `json:"address"`
	Items        []SnapshotItem  `json:"items"`
	Total        decimal.Decimal `json:"total"`
	PaymentLabel string          `json:"payment_label"`
}

func snapshotOf(o orders.Order) Snapshot {
	s := Snapshot{
		CustomerName: o.CustomerName,
		Address:      o.Address,
		Total:        o.Total,
		Items:        make([]SnapshotItem, 0, len(o.Items)),
	}
	if s.Total.IsZero() {
		s.Total = o.ItemsTotal()
	}
	for _, it := range o.Items {
		s.Items = append(s.Items, SnapshotItem{ProductName: it.ProductName, Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	labels := make([]string, 0, len(o.Payments))
	for _, p := range o.Payments {
		name := p.MethodName
		if name == "" {
			name = p.MethodID
		}
		labels = append(labels, name)
	}
	s.PaymentLabel = strings.Join(labels, " + ")
	return s
}

type Job struct {
	ID            string
	OrderID       string
	DepositID     string
	Status        Status
	DriverID      string
	AssignedAt    *time.Time
	AcceptedAt    *time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	RefusedAt     *time.Time
	RefusedBy     string
	RefusalReason string
	CancelReason  string
	FailureReason string
	Snapshot      Snapshot
	// Version is bumped on every save; stores reject stale writes.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j *Job) clearAssignment() {
	j.DriverID = ""
	j.AssignedAt = nil
	j.AcceptedAt = nil
	j.StartedAt = nil
}

func (j Job) clone() Job {
	c := j
	c.Snapshot.Items = append([]SnapshotItem(nil), j.Snapshot.Items...)
	for _, p := range []**time.Time{&c.AssignedAt, &c.AcceptedAt, &c.StartedAt, &c.CompletedAt, &c.RefusedAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return c
}

func ptr(t time.Time) *time.Time { return &t }
