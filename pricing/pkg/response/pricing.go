package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleProductFixedPrice   RuleType = "product_fixed_price"
	RuleSubcategoryDiscount RuleType = "subcategory_discount"
	RuleCategoryDiscount    RuleType = "category_discount"
	RuleGlobalDiscount      RuleType = "global_discount"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleProductFixedPrice, RuleSubcategoryDiscount, RuleCategoryDiscount, RuleGlobalDiscount:
		return true
	}
	return false
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Subcategory *string         `json:"subcategory,omitempty"`
	PriceEur    decimal.Decimal `json:"price_eur"`
	CostEur     decimal.Decimal `json:"cost_eur"`
}

type Rule struct {
	ID                 uuid.UUID           `json:"id"`
	SchemaID           uuid.UUID           `json:"schema_id"`
	Type               RuleType            `json:"type"`
	Category           *string             `json:"category,omitempty"`
	Subcategory        *string             `json:"subcategory,omitempty"`
	ProductID          *uuid.UUID          `json:"product_id,omitempty"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	FixedPriceEur      decimal.NullDecimal `json:"fixed_price_eur"`
}

type Schema struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Rules []Rule    `json:"rules"`
}

// CustomerSchema is one schema assigned to a customer. AssignedAt breaks
// ties between equal priorities.
type CustomerSchema struct {
	Priority   int32     `json:"priority"`
	AssignedAt time.Time `json:"assigned_at"`
	Schema     Schema    `json:"schema"`
}

type EffectivePrice struct {
	ProductID         uuid.UUID       `json:"product_id"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	DiscountedPrice   decimal.Decimal `json:"discounted_price"`
	IsDiscounted      bool            `json:"is_discounted"`
	AppliedSchemaName string          `json:"applied_schema_name,omitempty"`
}

type RuleValidation struct {
	Valid                 bool                `json:"valid"`
	Message               string              `json:"message,omitempty"`
	MaxDiscountPercentage decimal.NullDecimal `json:"max_discount_percentage"`
	MaxDiscountEur        decimal.NullDecimal `json:"max_discount_eur"`
	AffectedProductCount  int                 `json:"affected_product_count"`
}
