package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pricing/pricing/pkg/response"
)

type PricingRule struct {
	Type               string              `validate:"required,oneof=product_fixed_price subcategory_discount category_discount global_discount" json:"type"`
	Category           *string             `validate:"required_if=Type category_discount"                                                       json:"category,omitempty"`
	Subcategory        *string             `validate:"required_if=Type subcategory_discount"                                                    json:"subcategory,omitempty"`
	ProductID          *uuid.UUID          `validate:"required_if=Type product_fixed_price"                                                     json:"product_id,omitempty"`
	DiscountPercentage decimal.NullDecimal `validate:"dpct"                                                                                      json:"discount_percentage"`
	FixedPriceEur      decimal.NullDecimal `validate:"dgte0"                                                                                     json:"fixed_price_eur"`
}

func (p PricingRule) Rule() response.Rule {
	return response.Rule{
		Type:               response.RuleType(p.Type),
		Category:           p.Category,
		Subcategory:        p.Subcategory,
		ProductID:          p.ProductID,
		DiscountPercentage: p.DiscountPercentage,
		FixedPriceEur:      p.FixedPriceEur,
	}
}

type EffectivePrices struct {
	ProductIDs []uuid.UUID `validate:"required,gt=0,dive,required" json:"product_ids"`
	CustomerID *uuid.UUID  `                                       json:"customer_id,omitempty"`
}
