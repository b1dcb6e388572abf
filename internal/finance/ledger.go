// Package finance computes cash-flow entries and receivable titles for an
// order's payments.
package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

type Origin string

const (
	OriginOrderCompleted Origin = "ORDER_COMPLETED"
	OriginOrderCancelled Origin = "ORDER_CANCELLED"
)

type TitleStatus string

const (
	TitleOpen      TitleStatus = "OPEN"
	TitlePaid      TitleStatus = "PAID"
	TitleCancelled TitleStatus = "CANCELLED"
)

// CashMovement is an append-only cash-flow row. CenterID is always the
// order's deposit.
type CashMovement struct {
	ID        string
	At        time.Time
	Direction Direction
	CenterID  string
	MethodID  string
	Gross     decimal.Decimal
	Net       decimal.Decimal
	Origin    Origin
	OrderID   string
}

type Title struct {
	ID          string
	OrderID     string
	DepositID   string
	MethodID    string
	Amount      decimal.Decimal
	Outstanding decimal.Decimal
	DueDate     time.Time
	Status      TitleStatus
	CreatedAt   time.Time
}

type Impact struct {
	Movements []CashMovement
	Titles    []Title
}

var (
	tolerance = decimal.New(1, -2)
	hundred   = decimal.NewFromInt(100)
)

// ValidateTotals reports whether items and payments agree to within a cent.
func ValidateTotals(o orders.Order) bool {
	return o.ItemsTotal().Sub(o.PaymentsTotal()).Abs().LessThan(tolerance)
}

// NetAmount is gross minus the method fee, rounded to cents.
func NetAmount(gross, feePercent decimal.Decimal) decimal.Decimal {
	return gross.Mul(decimal.NewFromInt(1).Sub(feePercent.Div(hundred))).Round(2)
}

// ComputeImpact books each payment line. Receivable-generating deferred
// methods open a title on completion; on reversal they produce nothing here,
// title cancellation is handled by order id elsewhere. Payments whose method
// is not in methods are skipped.
func ComputeImpact(o orders.Order, methods catalog.PaymentMethods, origin Origin, reverse bool, now time.Time, newID func() string) Impact {
	if newID == nil {
		newID = uuid.NewString
	}
	dir := DirectionIn
	if reverse {
		dir = DirectionOut
	}

	var imp Impact
	for _, p := range o.Payments {
		m, ok := methods.Get(p.MethodID)
		if !ok {
			continue
		}
		if m.CreatesTitle() {
			if reverse {
				continue
			}
			imp.Titles = append(imp.Titles, Title{
				ID:          newID(),
				OrderID:     o.ID,
				DepositID:   o.DepositID,
				MethodID:    m.ID,
				Amount:      p.Amount,
				Outstanding: p.Amount,
				DueDate:     now.AddDate(0, 0, m.Term()),
				Status:      TitleOpen,
				CreatedAt:   now,
			})
			continue
		}
		imp.Movements = append(imp.Movements, CashMovement{
			ID:        newID(),
			At:        now,
			Direction: dir,
			CenterID:  o.DepositID,
			MethodID:  m.ID,
			Gross:     p.Amount,
			Net:       NetAmount(p.Amount, m.FeePercent),
			Origin:    origin,
			OrderID:   o.ID,
		})
	}
	return imp
}
