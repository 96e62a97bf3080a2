// Package margin rejects pricing rules that would sell a product below its
// cost plus the minimum margin configured for its category.
package margin

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Alturino/pricing/internal/config"
	"github.com/Alturino/pricing/pricing/pkg/response"
)

var hundred = decimal.NewFromInt(100)

type Validator struct {
	thresholds map[string]decimal.Decimal
}

func NewValidator(thresholds map[string]decimal.Decimal) Validator {
	copied := make(map[string]decimal.Decimal, len(thresholds))
	for category, margin := range thresholds {
		copied[category] = margin
	}
	return Validator{thresholds: copied}
}

func NewValidatorFromConfig(cfg config.Pricing) Validator {
	thresholds := make(map[string]decimal.Decimal, len(cfg.MarginThresholds))
	for _, t := range cfg.MarginThresholds {
		thresholds[t.Category] = decimal.NewFromFloat(t.MarginEur)
	}
	return Validator{thresholds: thresholds}
}

// Threshold is the minimum EUR margin for category. Unknown categories have none.
func (v Validator) Threshold(category string) decimal.Decimal {
	if margin, ok := v.thresholds[category]; ok {
		return margin
	}
	return decimal.Zero
}

func (v Validator) MinPrice(product response.Product) decimal.Decimal {
	return product.CostEur.Add(v.Threshold(product.Category))
}

// Validate is advisory and never touches stored rules. Fixed price rules stop
// at the first product they would undercut; percentage rules scan every
// product to report the tightest allowed discount.
func (v Validator) Validate(rule response.Rule, products []response.Product) response.RuleValidation {
	result := response.RuleValidation{Valid: true, AffectedProductCount: len(products)}
	if len(products) == 0 {
		return result
	}

	if rule.Type == response.RuleProductFixedPrice {
		return v.validateFixedPrice(rule, products, result)
	}
	if rule.DiscountPercentage.Valid {
		return v.validatePercentage(rule, products, result)
	}
	return result
}

func (v Validator) validateFixedPrice(
	rule response.Rule,
	products []response.Product,
	result response.RuleValidation,
) response.RuleValidation {
	if !rule.FixedPriceEur.Valid {
		result.Valid = false
		result.Message = "fixed price rule requires fixed_price_eur"
		return result
	}

	fixed := rule.FixedPriceEur.Decimal
	for _, product := range products {
		minPrice := v.MinPrice(product)
		if fixed.LessThan(minPrice) {
			result.Valid = false
			result.Message = fmt.Sprintf(
				"fixed price %s EUR for product %q is below minimum price %s EUR",
				fixed.StringFixed(2),
				product.Name,
				minPrice.StringFixed(2),
			)
			return result
		}
	}
	return result
}

func (v Validator) validatePercentage(
	rule response.Rule,
	products []response.Product,
	result response.RuleValidation,
) response.RuleValidation {
	requested := rule.DiscountPercentage.Decimal

	var (
		tightestPct decimal.NullDecimal
		tightestEur decimal.NullDecimal
		violation   *response.Product
	)
	for i, product := range products {
		headroom := decimal.Max(product.PriceEur.Sub(v.MinPrice(product)), decimal.Zero)
		maxPct := decimal.Zero
		if product.PriceEur.IsPositive() {
			maxPct = headroom.Div(product.PriceEur).Mul(hundred)
		}

		if !tightestPct.Valid || maxPct.LessThan(tightestPct.Decimal) {
			tightestPct = decimal.NewNullDecimal(maxPct)
			tightestEur = decimal.NewNullDecimal(headroom)
		}

		discountEur := product.PriceEur.Mul(requested).Div(hundred)
		if discountEur.GreaterThan(headroom) && violation == nil {
			violation = &products[i]
		}
	}

	result.MaxDiscountPercentage = decimal.NewNullDecimal(tightestPct.Decimal.RoundDown(2))
	result.MaxDiscountEur = decimal.NewNullDecimal(tightestEur.Decimal.RoundDown(2))
	if violation != nil {
		result.Valid = false
		result.Message = fmt.Sprintf(
			"discount of %s%% breaks the minimum margin of product %q, maximum allowed discount is %s%% (%s EUR)",
			requested.String(),
			violation.Name,
			result.MaxDiscountPercentage.Decimal.StringFixed(2),
			result.MaxDiscountEur.Decimal.StringFixed(2),
		)
	}
	return result
}
