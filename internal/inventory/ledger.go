package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

// Stamp carries the non-deterministic parts of a movement.
type Stamp struct {
	At    time.Time
	Actor string
	NewID func() string
}

func (s Stamp) id() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

// ValidateBalance checks that the order's deposit holds enough of every
// tracked product the order takes out. Items outside SALE, EXCHANGE and OTHER
// are not checked. One message per product short.
func ValidateBalance(o orders.Order, balances []Balance, c *catalog.Catalog) []string {
	required := map[string]int{}
	var seen []string
	for _, it := range o.Items {
		if !it.Modality.MovesStock() || c.Tracking(it.ProductID) == catalog.Service {
			continue
		}
		if _, ok := required[it.ProductID]; !ok {
			seen = append(seen, it.ProductID)
		}
		required[it.ProductID] += it.Quantity
	}

	available := map[string]int{}
	for _, b := range balances {
		if b.DepositID == o.DepositID {
			available[b.ProductID] += b.Quantity
		}
	}

	var errs []string
	for _, id := range seen {
		need, have := required[id], available[id]
		if need > have {
			errs = append(errs, fmt.Sprintf("insufficient stock for %s: required %d, available %d, missing %d",
				c.Name(id), need, have, need-have))
		}
	}
	return errs
}

// ComputeMovements derives the stock movements of an order. With reverse set
// every direction is flipped, which is how a cancellation undoes a completion.
//
// An exchange-rule item also brings the empty container back in. When no
// return product can be resolved the paired movement is skipped silently.
func ComputeMovements(o orders.Order, c *catalog.Catalog, origin Origin, reverse bool, st Stamp) []Movement {
	primary, paired := DirectionOut, DirectionIn
	if reverse {
		primary, paired = DirectionIn, DirectionOut
	}

	var out []Movement
	for _, it := range o.Items {
		if !it.Modality.MovesStock() || c.Tracking(it.ProductID) == catalog.Service {
			continue
		}
		p, _ := c.Product(it.ProductID)
		out = append(out, Movement{
			ID: st.id(), At: st.At, DepositID: o.DepositID, ProductID: p.ID,
			Direction: primary, Quantity: it.Quantity, Origin: origin, OrderID: o.ID, Actor: st.Actor,
		})

		if itemRule(c, p, it) != catalog.RuleExchange {
			continue
		}
		rp, ok := c.ResolveReturnProduct(p)
		if !ok {
			continue
		}
		out = append(out, Movement{
			ID: st.id(), At: st.At, DepositID: o.DepositID, ProductID: rp.ID,
			Direction: paired, Quantity: it.Quantity, Origin: origin, OrderID: o.ID, Actor: st.Actor,
		})
	}
	return out
}

// itemRule applies the cashier's override on top of the product rule when the
// product allows both ways of selling.
func itemRule(c *catalog.Catalog, p catalog.Product, it orders.OrderItem) catalog.MovementRule {
	rule := c.ResolveRule(p)
	if it.MovementOverride == orders.OverrideNone || !c.SupportsBoth(p) {
		return rule
	}
	switch it.MovementOverride {
	case orders.OverrideFull:
		return catalog.RuleFull
	case orders.OverrideExchange:
		return catalog.RuleExchange
	}
	return rule
}
