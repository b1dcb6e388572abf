// Package checkout completes and cancels orders. It never persists anything:
// the Result carries the order and every ledger row that must be written
// together with it in one transaction.
package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/finance"
	"github.com/ariefcatur/go-depot-engine/internal/inventory"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

type Result struct {
	Success bool
	Errors  []string
	// Order is the updated copy on success and the untouched input on failure.
	Order          orders.Order
	PreviousStatus orders.Status
	StockMovements []inventory.Movement
	CashMovements  []finance.CashMovement
	Titles         []finance.Title
}

// NeedsDispatch reports whether a delivery job should follow this result.
func (r Result) NeedsDispatch() bool {
	return r.Success && r.Order.Status == orders.StatusCompleted && r.Order.IsDelivery()
}

// Orchestrator is safe for concurrent use; it holds no mutable state.
type Orchestrator struct {
	now   func() time.Time
	newID func() string
	actor string
}

type option func(*Orchestrator)

func New(opts ...option) *Orchestrator {
	o := &Orchestrator{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClock sets the time source used for timestamps and due dates.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator sets the id source for movements and titles.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithIDGenerator(newID func() string) option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithActor names who the movements are recorded against.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithActor(actor string) option {
	return func(o *Orchestrator) { o.actor = actor }
}

// Complete validates the order and, when every precondition holds, returns
// the completed copy plus its forward ledger entries. All problems found are
// reported together.
func (s *Orchestrator) Complete(
	o orders.Order,
	balances []inventory.Balance,
	c *catalog.Catalog,
	methods catalog.PaymentMethods,
) Result {
	if !orders.CanTransition(o.Status, orders.StatusCompleted) {
		return failed(o, fmt.Sprintf("order %s cannot be completed from status %s", o.ID, o.Status))
	}

	var errs []string
	errs = append(errs, unknownRefs(o, c, methods)...)
	if !finance.ValidateTotals(o) {
		errs = append(errs, fmt.Sprintf("payments total %s does not match items total %s",
			o.PaymentsTotal().StringFixed(2), o.ItemsTotal().StringFixed(2)))
	}
	errs = append(errs, inventory.ValidateBalance(o, balances, c)...)
	if len(errs) > 0 {
		return failed(o, errs...)
	}

	now := s.now()
	st := inventory.Stamp{At: now, Actor: s.actor, NewID: s.newID}
	impact := finance.ComputeImpact(o, methods, finance.OriginOrderCompleted, false, now, s.newID)

	next := o.Clone()
	next.Status = orders.StatusCompleted
	next.CompletedAt = &now
	next.History = append(next.History, orders.HistoryEntry{
		At: now, Status: orders.StatusCompleted, Note: "order completed", Actor: s.actor,
	})

	return Result{
		Success:        true,
		Order:          next,
		PreviousStatus: o.Status,
		StockMovements: inventory.ComputeMovements(o, c, inventory.OriginOrderCompleted, false, st),
		CashMovements:  impact.Movements,
		Titles:         impact.Titles,
	}
}

// Cancel reverses a completed order. Receivable titles opened on completion
// are left alone; cancelling them is keyed by order id outside this package.
func (s *Orchestrator) Cancel(o orders.Order, c *catalog.Catalog, methods catalog.PaymentMethods) Result {
	if !orders.CanTransition(o.Status, orders.StatusCancelled) {
		return failed(o, fmt.Sprintf("order %s cannot be cancelled from status %s", o.ID, o.Status))
	}

	now := s.now()
	st := inventory.Stamp{At: now, Actor: s.actor, NewID: s.newID}
	impact := finance.ComputeImpact(o, methods, finance.OriginOrderCancelled, true, now, s.newID)

	next := o.Clone()
	next.Status = orders.StatusCancelled
	next.CancelledAt = &now
	next.History = append(next.History, orders.HistoryEntry{
		At: now, Status: orders.StatusCancelled, Note: "order cancelled", Actor: s.actor,
	})

	return Result{
		Success:        true,
		Order:          next,
		PreviousStatus: o.Status,
		StockMovements: inventory.ComputeMovements(o, c, inventory.OriginOrderCancelled, true, st),
		CashMovements:  impact.Movements,
	}
}

func failed(o orders.Order, errs ...string) Result {
	return Result{Success: false, Errors: errs, Order: o, PreviousStatus: o.Status}
}

func unknownRefs(o orders.Order, c *catalog.Catalog, methods catalog.PaymentMethods) []string {
	var errs []string
	for _, it := range o.Items {
		if _, ok := c.Product(it.ProductID); !ok {
			errs = append(errs, fmt.Sprintf("product %s not found in catalog", it.ProductID))
		}
		if it.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("invalid quantity %d for product %s", it.Quantity, it.ProductID))
		}
	}
	for _, p := range o.Payments {
		m, ok := methods.Get(p.MethodID)
		if !ok {
			errs = append(errs, fmt.Sprintf("payment method %s not found", p.MethodID))
			continue
		}
		if !m.Timing.Valid() {
			errs = append(errs, fmt.Sprintf("payment method %s has unknown timing %q", p.MethodID, m.Timing))
		}
	}
	return errs
}
