package catalog

// ResolveRule returns the product's movement rule: the explicit field when
// set, otherwise the legacy inference.
func (c *Catalog) ResolveRule(p Product) MovementRule {
	if p.MovementRule != RuleUnset {
		return p.MovementRule
	}
	return legacyRule(p)
}

// Legacy records mark full containers by kind only. A full container that
// belongs to a container type is sold under the exchange rule.
func legacyRule(p Product) MovementRule {
	if p.Kind == KindFullContainer {
		if p.ReturnProductID != "" || p.ContainerType != "" {
			return RuleExchange
		}
		return RuleFull
	}
	return RuleSimple
}

// ResolveReturnProduct finds the empty-container product paired with p.
// An explicit link wins when it points at a known product; otherwise the
// legacy group + container-type lookup is used.
func (c *Catalog) ResolveReturnProduct(p Product) (Product, bool) {
	if p.ReturnProductID != "" {
		if rp, ok := c.Product(p.ReturnProductID); ok {
			return rp, true
		}
	}
	return c.legacyReturnProduct(p)
}

func (c *Catalog) legacyReturnProduct(p Product) (Product, bool) {
	if p.GroupID == "" || p.ContainerType == "" {
		return Product{}, false
	}
	for _, id := range c.ids {
		cand := c.byID[id].product
		if cand.ID == p.ID || cand.Kind != KindEmptyContainer {
			continue
		}
		if cand.GroupID == p.GroupID && cand.ContainerType == p.ContainerType {
			return cand, true
		}
	}
	return Product{}, false
}

// SupportsBoth reports whether the cashier may choose between exchange and
// full sale for this product.
func (c *Catalog) SupportsBoth(p Product) bool {
	switch c.ResolveRule(p) {
	case RuleExchange:
		return p.AllowFullSale
	case RuleFull:
		_, ok := c.ResolveReturnProduct(p)
		return ok
	}
	return false
}
