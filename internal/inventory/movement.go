// Package inventory computes the stock side of an order: which movements it
// produces and whether the deposit holds enough to fulfil it.
package inventory

import "time"

type Direction string

const (
	DirectionIn              Direction = "IN"
	DirectionOut             Direction = "OUT"
	DirectionSupplyIn        Direction = "SUPPLY_IN"
	DirectionBleedOut        Direction = "BLEED_OUT"
	DirectionCountAdjustment Direction = "COUNT_ADJUSTMENT"
)

// Sign is the effect of one unit moved in this direction on the balance.
// Count adjustments carry a signed quantity.
func (d Direction) Sign() int {
	switch d {
	case DirectionOut, DirectionBleedOut:
		return -1
	}
	return 1
}

func (d Direction) Opposite() Direction {
	switch d {
	case DirectionIn:
		return DirectionOut
	case DirectionOut:
		return DirectionIn
	case DirectionSupplyIn:
		return DirectionBleedOut
	case DirectionBleedOut:
		return DirectionSupplyIn
	}
	return d
}

type Origin string

const (
	OriginOrderCompleted   Origin = "ORDER_COMPLETED"
	OriginOrderCancelled   Origin = "ORDER_CANCELLED"
	OriginManualAdjustment Origin = "MANUAL_ADJUSTMENT"
	OriginTransfer         Origin = "TRANSFER"
)

// Movement is an append-only stock ledger row. Corrections are new rows.
type Movement struct {
	ID        string
	At        time.Time
	DepositID string
	ProductID string
	Direction Direction
	Quantity  int
	Origin    Origin
	OrderID   string
	Actor     string
}

// Delta is the signed balance change of the movement.
func (m Movement) Delta() int { return m.Direction.Sign() * m.Quantity }

type Balance struct {
	DepositID string
	ProductID string
	Quantity  int
}

// ApplyMovements folds movements into a copy of balances. Pairs missing from
// balances start at zero and are appended in first-seen order.
func ApplyMovements(balances []Balance, movements []Movement) []Balance {
	type key struct{ deposit, product string }
	out := append([]Balance(nil), balances...)
	idx := make(map[key]int, len(out))
	for i, b := range out {
		idx[key{b.DepositID, b.ProductID}] = i
	}
	for _, m := range movements {
		k := key{m.DepositID, m.ProductID}
		i, ok := idx[k]
		if !ok {
			out = append(out, Balance{DepositID: m.DepositID, ProductID: m.ProductID})
			i = len(out) - 1
			idx[k] = i
		}
		out[i].Quantity += m.Delta()
	}
	return out
}
