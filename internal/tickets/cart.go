package tickets

import "github.com/shopspring/decimal"

// Cart is the visitor's client-local selection, echoed to the server when the
// purchase is submitted. Quantities are never negative after Normalize.
type Cart struct {
	VisitDateISO *string           `json:"visitDateIso"`
	VisitTime    *string           `json:"visitTime"`
	Quantities   map[ProductID]int `json:"quantities"`
}

// OrderItem is one purchasable line derived from the cart.
type OrderItem struct {
	ID        ProductID       `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// EmptyCart returns the reset state: no visit slot, all-zero quantities.
func EmptyCart() Cart {
	quantities := make(map[ProductID]int, len(Catalog))
	for _, product := range Catalog {
		quantities[product.ID] = 0
	}
	return Cart{Quantities: quantities}
}

// Normalize clamps negative quantities to zero and drops unknown product ids.
func (c Cart) Normalize() Cart {
	out := EmptyCart()
	out.VisitDateISO = c.VisitDateISO
	out.VisitTime = c.VisitTime
	for id, qty := range c.Quantities {
		if _, ok := ProductByID(id); !ok {
			continue
		}
		if qty > 0 {
			out.Quantities[id] = qty
		}
	}
	return out
}

// BuildOrderItems emits a line per non-zero quantity, in catalog order, with
// LineTotal = UnitPrice x Quantity.
func BuildOrderItems(cart Cart) []OrderItem {
	normalized := cart.Normalize()
	items := make([]OrderItem, 0, len(Catalog))
	for _, product := range Catalog {
		qty := normalized.Quantities[product.ID]
		if qty <= 0 {
			continue
		}
		items = append(items, OrderItem{
			ID:        product.ID,
			Name:      product.Name,
			Quantity:  qty,
			UnitPrice: product.UnitPrice,
			LineTotal: product.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return items
}

// Subtotal sums line totals. The order total equals the subtotal: no taxes or
// fees are modeled.
func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	return sum
}
