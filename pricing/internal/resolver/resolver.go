// Package resolver computes the price a customer pays for a product from the
// pricing schemas assigned to that customer.
//
// Schemas are consulted in priority order and the first schema holding any
// rule that matches the product decides the price. Rules are never combined
// across schemas. Inside a schema, rule classes are tried from the most to
// the least specific: product fixed price, subcategory, category, global.
package resolver

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Alturino/pricing/pricing/pkg/response"
)

var hundred = decimal.NewFromInt(100)

// strategy is one rule class: match decides whether a rule of the class
// applies to the product and apply turns the list price into the new price.
type strategy struct {
	ruleType response.RuleType
	match    func(rule response.Rule, product response.Product) bool
	apply    func(rule response.Rule, original decimal.Decimal) decimal.Decimal
}

// specificity is evaluated in order; the first strategy with a matching rule wins.
var specificity = []strategy{
	{
		ruleType: response.RuleProductFixedPrice,
		match: func(rule response.Rule, product response.Product) bool {
			return rule.FixedPriceEur.Valid && rule.ProductID != nil && *rule.ProductID == product.ID
		},
		apply: fixedPrice,
	},
	{
		ruleType: response.RuleSubcategoryDiscount,
		match: func(rule response.Rule, product response.Product) bool {
			return rule.DiscountPercentage.Valid &&
				rule.Subcategory != nil &&
				product.Subcategory != nil &&
				*rule.Subcategory == *product.Subcategory
		},
		apply: percentage,
	},
	{
		ruleType: response.RuleCategoryDiscount,
		match: func(rule response.Rule, product response.Product) bool {
			return rule.DiscountPercentage.Valid &&
				rule.Category != nil &&
				*rule.Category == product.Category
		},
		apply: percentage,
	},
	{
		ruleType: response.RuleGlobalDiscount,
		match: func(rule response.Rule, _ response.Product) bool {
			return rule.DiscountPercentage.Valid
		},
		apply: percentage,
	},
}

func fixedPrice(rule response.Rule, _ decimal.Decimal) decimal.Decimal {
	return rule.FixedPriceEur.Decimal
}

func percentage(rule response.Rule, original decimal.Decimal) decimal.Decimal {
	return Discount(original, rule.DiscountPercentage.Decimal)
}

// Discount returns original reduced by pct percent, rounded to cents.
func Discount(original decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	return original.Mul(factor).Round(2)
}

// firstMatch returns the rule of schema that decides the price of product
// together with its strategy.
func firstMatch(schema response.Schema, product response.Product) (response.Rule, strategy, bool) {
	for _, s := range specificity {
		for _, rule := range schema.Rules {
			if rule.Type == s.ruleType && s.match(rule, product) {
				return rule, s, true
			}
		}
	}
	return response.Rule{}, strategy{}, false
}

// Resolve never fails: with no schemas, or no matching rule, the product keeps
// its list price. schemas must already be ordered with SortByPriority.
func Resolve(product response.Product, schemas []response.CustomerSchema) response.EffectivePrice {
	price := response.EffectivePrice{
		ProductID:       product.ID,
		OriginalPrice:   product.PriceEur,
		DiscountedPrice: product.PriceEur,
	}

	appliedSchema := ""
	for _, assigned := range schemas {
		rule, s, ok := firstMatch(assigned.Schema, product)
		if !ok {
			continue
		}
		price.DiscountedPrice = s.apply(rule, product.PriceEur)
		appliedSchema = assigned.Schema.Name
		break
	}

	price.IsDiscounted = price.DiscountedPrice.LessThan(price.OriginalPrice)
	if price.IsDiscounted {
		price.AppliedSchemaName = appliedSchema
	}
	return price
}

// SortByPriority orders schemas by priority descending. Equal priorities
// fall back to the earliest assignment, then to the schema id.
func SortByPriority(schemas []response.CustomerSchema) {
	slices.SortStableFunc(schemas, func(a, b response.CustomerSchema) int {
		if n := cmp.Compare(b.Priority, a.Priority); n != 0 {
			return n
		}
		if n := a.AssignedAt.Compare(b.AssignedAt); n != 0 {
			return n
		}
		return bytes.Compare(a.Schema.ID[:], b.Schema.ID[:])
	})
}
