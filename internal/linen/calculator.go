package linen

import (
	"sort"

	"github.com/casaops/backend/internal/storage/models"
)

// Requirement is the computed linen for one stay, keyed by inventory item key.
type Requirement struct {
	Bed  map[string]int
	Bath map[string]int
}

// Keys returns the sorted item keys across bed and bath linen, with
// quantities merged. Sorting keeps downstream order documents stable.
func (r Requirement) Keys() []models.OrderItem {
	merged := make(map[string]int, len(r.Bed)+len(r.Bath))
	for k, q := range r.Bed {
		merged[k] += q
	}
	for k, q := range r.Bath {
		merged[k] += q
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]models.OrderItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, models.OrderItem{ItemID: k, Quantity: merged[k]})
	}
	return items
}

// Calculate computes the linen requirement for a bed configuration, guest
// count and bathroom count. Pure and deterministic: beds are allocated in
// configuration order until their combined capacity covers the guests, and
// beds beyond that point are not linened. Bath linen is per guest plus a
// bath mat per bathroom.
func Calculate(rules *RuleTable, beds []models.Bed, guests, bathrooms int) Requirement {
	req := Requirement{
		Bed:  make(map[string]int),
		Bath: make(map[string]int),
	}

	if guests > 0 {
		hosted := 0
		for _, bed := range beds {
			if hosted >= guests {
				break
			}
			rule, ok := rules.Beds[bed.Type]
			if !ok {
				continue
			}
			for key, qty := range rule.Linen {
				req.Bed[key] += qty
			}
			hosted += rule.Capacity
		}

		for key, qty := range rules.PerGuest {
			req.Bath[key] += qty * guests
		}
	}

	for key, qty := range rules.PerBathroom {
		req.Bath[key] += qty * bathrooms
	}

	return req
}

// ForProperty computes the requirement for a property and guest count,
// honouring the property's per-guest-count bed-linen override table: an
// exact guest-count match replaces the computed bed linen, bath linen is
// always computed.
func ForProperty(rules *RuleTable, p *models.Property, guests int) Requirement {
	req := Calculate(rules, p.Beds, guests, p.Bathrooms)

	if override, ok := p.LinenOverrides[guests]; ok {
		req.Bed = make(map[string]int, len(override))
		for key, qty := range override {
			if qty > 0 {
				req.Bed[key] = qty
			}
		}
	}

	return req
}
