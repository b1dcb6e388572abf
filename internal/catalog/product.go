// Package catalog holds the read-only product and payment-method snapshots
// the ledgers compute against.
package catalog

import "sort"

type MovementRule string

const (
	RuleUnset    MovementRule = ""
	RuleSimple   MovementRule = "SIMPLE"
	RuleExchange MovementRule = "EXCHANGE"
	RuleFull     MovementRule = "FULL"
)

// Kind is the legacy product classification that predates MovementRule and
// explicit return links.
type Kind string

const (
	KindGoods          Kind = "GOODS"
	KindFullContainer  Kind = "FULL_CONTAINER"
	KindEmptyContainer Kind = "EMPTY_CONTAINER"
)

type Tracking string

const (
	Tracked Tracking = "TRACKED"
	Service Tracking = "SERVICE"
)

type Product struct {
	ID              string
	Name            string
	MovementRule    MovementRule
	IsService       bool
	IsDeliveryFee   bool
	TrackStock      *bool // nil = not configured
	ReturnProductID string
	GroupID         string
	ContainerType   string
	Kind            Kind
	AllowFullSale   bool
}

// Classify folds every flag that means "no stock is kept for this" into one tag.
func Classify(p Product) Tracking {
	if p.IsService || p.IsDeliveryFee {
		return Service
	}
	if p.TrackStock != nil && !*p.TrackStock {
		return Service
	}
	return Tracked
}

type entry struct {
	product  Product
	tracking Tracking
}

// Catalog indexes products by id. Tracking is computed once here.
type Catalog struct {
	byID map[string]entry
	ids  []string
}

func NewCatalog(products []Product) *Catalog {
	c := &Catalog{byID: make(map[string]entry, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; !dup {
			c.ids = append(c.ids, p.ID)
		}
		c.byID[p.ID] = entry{product: p, tracking: Classify(p)}
	}
	sort.Strings(c.ids)
	return c
}

func (c *Catalog) Product(id string) (Product, bool) {
	e, ok := c.byID[id]
	return e.product, ok
}

// Tracking reports SERVICE for unknown products as well: nothing can be
// moved for a product the catalog does not know.
func (c *Catalog) Tracking(id string) Tracking {
	e, ok := c.byID[id]
	if !ok {
		return Service
	}
	return e.tracking
}

func (c *Catalog) Name(id string) string {
	if e, ok := c.byID[id]; ok && e.product.Name != "" {
		return e.product.Name
	}
	return id
}

