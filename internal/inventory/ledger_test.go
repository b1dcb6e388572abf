package inventory

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

func testCatalog() *catalog.Catalog {
	off := false
	return catalog.NewCatalog([]catalog.Product{
		{ID: "gas-full", Name: "Gas P13", MovementRule: catalog.RuleExchange, ReturnProductID: "gas-empty", AllowFullSale: true},
		{ID: "gas-empty", Name: "Empty P13", Kind: catalog.KindEmptyContainer},
		{ID: "water", Name: "Water 20L", MovementRule: catalog.RuleSimple},
		{ID: "keg", Name: "Keg", MovementRule: catalog.RuleFull, ReturnProductID: "gas-empty"},
		{ID: "orphan", Name: "Orphan", MovementRule: catalog.RuleExchange},
		{ID: "fee", Name: "Delivery fee", IsDeliveryFee: true},
		{ID: "untracked", Name: "Loose", TrackStock: &off},
	})
}

func seqStamp() Stamp {
	n := 0
	return Stamp{
		At:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Actor: "cashier",
		NewID: func() string { n++; return fmt.Sprintf("m%d", n) },
	}
}

func item(id string, qty int, mod orders.Modality) orders.OrderItem {
	return orders.OrderItem{ProductID: id, Quantity: qty, UnitPrice: decimal.NewFromInt(10), Modality: mod}
}

func TestComputeMovementsExchange(t *testing.T) {
	t.Parallel()

	o := orders.Order{ID: "o1", DepositID: "d1", Items: []orders.OrderItem{item("gas-full", 2, orders.ModalityExchange)}}
	got := ComputeMovements(o, testCatalog(), OriginOrderCompleted, false, seqStamp())
	if len(got) != 2 {
		t.Fatalf("got %d movements, want 2", len(got))
	}
	if got[0].ProductID != "gas-full" || got[0].Direction != DirectionOut || got[0].Quantity != 2 {
		t.Fatalf("primary = %+v", got[0])
	}
	if got[1].ProductID != "gas-empty" || got[1].Direction != DirectionIn || got[1].Quantity != 2 {
		t.Fatalf("paired = %+v", got[1])
	}
	if got[0].OrderID != "o1" || got[0].DepositID != "d1" || got[0].Actor != "cashier" {
		t.Fatalf("stamp not applied: %+v", got[0])
	}
}

func TestComputeMovementsReverseIsInverse(t *testing.T) {
	t.Parallel()

	o := orders.Order{ID: "o1", DepositID: "d1", Items: []orders.OrderItem{
		item("gas-full", 3, orders.ModalitySale),
		item("water", 1, orders.ModalityOther),
	}}
	c := testCatalog()
	fwd := ComputeMovements(o, c, OriginOrderCompleted, false, seqStamp())
	rev := ComputeMovements(o, c, OriginOrderCancelled, true, seqStamp())
	if len(fwd) != len(rev) {
		t.Fatalf("len fwd=%d rev=%d", len(fwd), len(rev))
	}
	for i := range fwd {
		if fwd[i].ProductID != rev[i].ProductID || fwd[i].Quantity != rev[i].Quantity {
			t.Fatalf("row %d differs: %+v vs %+v", i, fwd[i], rev[i])
		}
		if rev[i].Direction != fwd[i].Direction.Opposite() {
			t.Fatalf("row %d direction %s, want %s", i, rev[i].Direction, fwd[i].Direction.Opposite())
		}
		if rev[i].Origin != OriginOrderCancelled {
			t.Fatalf("row %d origin %s", i, rev[i].Origin)
		}
	}

	start := []Balance{{DepositID: "d1", ProductID: "gas-full", Quantity: 10}, {DepositID: "d1", ProductID: "gas-empty", Quantity: 4}}
	back := ApplyMovements(ApplyMovements(start, fwd), rev)
	want := append(append([]Balance(nil), start...), Balance{DepositID: "d1", ProductID: "water", Quantity: 0})
	if !reflect.DeepEqual(back, want) {
		t.Fatalf("round trip = %+v, want %+v", back, want)
	}
}

func TestComputeMovementsSkips(t *testing.T) {
	t.Parallel()

	o := orders.Order{ID: "o1", DepositID: "d1", Items: []orders.OrderItem{
		item("fee", 1, orders.ModalitySale),
		item("untracked", 1, orders.ModalitySale),
		item("ghost", 1, orders.ModalitySale),
		item("water", 5, orders.ModalityLoan),
		item("water", 5, orders.ModalityGift),
		item("orphan", 1, orders.ModalityExchange),
	}}
	got := ComputeMovements(o, testCatalog(), OriginOrderCompleted, false, seqStamp())
	// only the orphan's OUT survives; its return product cannot be resolved
	if len(got) != 1 || got[0].ProductID != "orphan" || got[0].Direction != DirectionOut {
		t.Fatalf("got %+v", got)
	}
}

func TestComputeMovementsOverride(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	full := item("gas-full", 1, orders.ModalitySale)
	full.MovementOverride = orders.OverrideFull
	got := ComputeMovements(orders.Order{ID: "o", DepositID: "d", Items: []orders.OrderItem{full}}, c, OriginOrderCompleted, false, seqStamp())
	if len(got) != 1 {
		t.Fatalf("full override: got %d movements, want 1", len(got))
	}

	keg := item("keg", 2, orders.ModalitySale)
	got = ComputeMovements(orders.Order{ID: "o", DepositID: "d", Items: []orders.OrderItem{keg}}, c, OriginOrderCompleted, false, seqStamp())
	if len(got) != 1 {
		t.Fatalf("full rule without override: got %d movements, want 1", len(got))
	}
	keg.MovementOverride = orders.OverrideExchange
	got = ComputeMovements(orders.Order{ID: "o", DepositID: "d", Items: []orders.OrderItem{keg}}, c, OriginOrderCompleted, false, seqStamp())
	if len(got) != 2 || got[1].ProductID != "gas-empty" || got[1].Direction != DirectionIn {
		t.Fatalf("exchange override on full product: got %+v", got)
	}

	// water cannot be sold both ways, so the override is ignored
	w := item("water", 1, orders.ModalitySale)
	w.MovementOverride = orders.OverrideExchange
	got = ComputeMovements(orders.Order{ID: "o", DepositID: "d", Items: []orders.OrderItem{w}}, c, OriginOrderCompleted, false, seqStamp())
	if len(got) != 1 {
		t.Fatalf("ignored override: got %d movements, want 1", len(got))
	}
}

func TestValidateBalance(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	o := orders.Order{ID: "o1", DepositID: "d1", Items: []orders.OrderItem{
		item("gas-full", 2, orders.ModalitySale),
		item("gas-full", 3, orders.ModalityExchange),
		item("water", 1, orders.ModalitySale),
		item("water", 9, orders.ModalityLoan),
		item("fee", 1, orders.ModalitySale),
	}}
	balances := []Balance{
		{DepositID: "d1", ProductID: "gas-full", Quantity: 4},
		{DepositID: "d2", ProductID: "gas-full", Quantity: 100},
		{DepositID: "d1", ProductID: "water", Quantity: 1},
	}
	errs := ValidateBalance(o, balances, c)
	want := []string{"insufficient stock for Gas P13: required 5, available 4, missing 1"}
	if !reflect.DeepEqual(errs, want) {
		t.Fatalf("errs = %q, want %q", errs, want)
	}

	balances[0].Quantity = 5
	if errs := ValidateBalance(o, balances, c); len(errs) != 0 {
		t.Fatalf("exact stock should pass, got %q", errs)
	}
}

func TestApplyMovementsNewPair(t *testing.T) {
	t.Parallel()

	in := []Balance{{DepositID: "d1", ProductID: "a", Quantity: 3}}
	out := ApplyMovements(in, []Movement{
		{DepositID: "d1", ProductID: "a", Direction: DirectionOut, Quantity: 1},
		{DepositID: "d1", ProductID: "b", Direction: DirectionSupplyIn, Quantity: 7},
		{DepositID: "d1", ProductID: "b", Direction: DirectionBleedOut, Quantity: 2},
	})
	want := []Balance{{DepositID: "d1", ProductID: "a", Quantity: 2}, {DepositID: "d1", ProductID: "b", Quantity: 5}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %+v, want %+v", out, want)
	}
	if in[0].Quantity != 3 {
		t.Fatal("input balances were mutated")
	}
}
