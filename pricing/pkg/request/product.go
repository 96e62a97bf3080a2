package request

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	Name        string          `validate:"required,max=255" json:"name"`
	SKU         string          `validate:"required,max=64"  json:"sku"`
	Category    string          `validate:"required,max=128" json:"category"`
	Subcategory *string         `validate:"omitempty,max=128" json:"subcategory,omitempty"`
	PriceEur    decimal.Decimal `validate:"dgte0"             json:"price_eur"`
	CostEur     decimal.Decimal `validate:"dgte0"             json:"cost_eur"`
}

// ProductFilter narrows a catalog listing. Subcategory wins over Category.
type ProductFilter struct {
	Category    string
	Subcategory string
}
