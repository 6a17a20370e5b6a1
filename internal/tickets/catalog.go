package tickets

import "github.com/shopspring/decimal"

// ProductID identifies a fixed catalog entry.
type ProductID string

const (
	ProductAdult  ProductID = "adult"
	ProductJunior ProductID = "junior"
)

// Product is a park-entry ticket type. The catalog is defined at build time
// and is not user-editable.
type Product struct {
	ID        ProductID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl"`
}

// Catalog lists every sellable ticket product, in display order.
var Catalog = []Product{
	{
		ID:        ProductAdult,
		Name:      "Electronic entry - adult",
		UnitPrice: decimal.NewFromInt(100),
		ImageURL:  "https://images.unsplash.com/photo-1493857671505-72967e2e2760?auto=format&fit=crop&w=1200&q=80",
	},
	{
		ID:        ProductJunior,
		Name:      "Electronic entry - junior",
		UnitPrice: decimal.NewFromInt(80),
		ImageURL:  "https://images.unsplash.com/photo-1513889961551-628c1e5e2ee9?auto=format&fit=crop&w=1200&q=80",
	},
}

// ProductByID resolves a catalog entry.
func ProductByID(id ProductID) (Product, bool) {
	for _, product := range Catalog {
		if product.ID == id {
			return product, true
		}
	}
	return Product{}, false
}
