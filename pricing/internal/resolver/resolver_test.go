package resolver

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pricing/pricing/pkg/response"
)

func ptr[T any](v T) *T {
	return &v
}

func amount(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func newProduct(price string, category string, subcategory *string) response.Product {
	return response.Product{
		ID:          uuid.New(),
		Name:        "Product",
		SKU:         "SKU-" + uuid.NewString()[:8],
		Category:    category,
		Subcategory: subcategory,
		PriceEur:    decimal.RequireFromString(price),
		CostEur:     decimal.Zero,
	}
}

func assign(priority int32, name string, rules ...response.Rule) response.CustomerSchema {
	return response.CustomerSchema{
		Priority: priority,
		Schema:   response.Schema{ID: uuid.New(), Name: name, Rules: rules},
	}
}

func TestResolve(t *testing.T) {
	product := newProduct("100", "X", ptr("X-1"))

	tests := []struct {
		name            string
		schemas         []response.CustomerSchema
		expectedPrice   string
		expectedApplied string
		expectedDisc    bool
	}{
		{
			name:          "given no assigned schema should return original price",
			schemas:       nil,
			expectedPrice: "100",
		},
		{
			name: "given schemas without matching rules should return original price",
			schemas: []response.CustomerSchema{
				assign(1, "other category", response.Rule{
					Type:               response.RuleCategoryDiscount,
					Category:           ptr("Y"),
					DiscountPercentage: amount("50"),
				}),
			},
			expectedPrice: "100",
		},
		{
			name: "given higher priority category discount should not consult lower priority fixed price",
			schemas: []response.CustomerSchema{
				assign(2, "A", response.Rule{
					Type:               response.RuleCategoryDiscount,
					Category:           ptr("X"),
					DiscountPercentage: amount("20"),
				}),
				assign(1, "B", response.Rule{
					Type:          response.RuleProductFixedPrice,
					ProductID:     ptr(product.ID),
					FixedPriceEur: amount("50"),
				}),
			},
			expectedPrice:   "80",
			expectedApplied: "A",
			expectedDisc:    true,
		},
		{
			name: "given fixed price and category discount in one schema should apply fixed price",
			schemas: []response.CustomerSchema{
				assign(1, "A",
					response.Rule{
						Type:               response.RuleCategoryDiscount,
						Category:           ptr("X"),
						DiscountPercentage: amount("10"),
					},
					response.Rule{
						Type:          response.RuleProductFixedPrice,
						ProductID:     ptr(product.ID),
						FixedPriceEur: amount("42"),
					},
				),
			},
			expectedPrice:   "42",
			expectedApplied: "A",
			expectedDisc:    true,
		},
		{
			name: "given subcategory and global discount should apply subcategory",
			schemas: []response.CustomerSchema{
				assign(1, "A",
					response.Rule{Type: response.RuleGlobalDiscount, DiscountPercentage: amount("50")},
					response.Rule{
						Type:               response.RuleSubcategoryDiscount,
						Subcategory:        ptr("X-1"),
						DiscountPercentage: amount("15"),
					},
				),
			},
			expectedPrice:   "85",
			expectedApplied: "A",
			expectedDisc:    true,
		},
		{
			name: "given only global discount should apply global discount",
			schemas: []response.CustomerSchema{
				assign(1, "everyone", response.Rule{
					Type:               response.RuleGlobalDiscount,
					DiscountPercentage: amount("12.5"),
				}),
			},
			expectedPrice:   "87.5",
			expectedApplied: "everyone",
			expectedDisc:    true,
		},
		{
			name: "given first schema without match should fall through to next schema",
			schemas: []response.CustomerSchema{
				assign(5, "none", response.Rule{
					Type:               response.RuleSubcategoryDiscount,
					Subcategory:        ptr("Z-9"),
					DiscountPercentage: amount("90"),
				}),
				assign(1, "fallback", response.Rule{
					Type:               response.RuleGlobalDiscount,
					DiscountPercentage: amount("5"),
				}),
			},
			expectedPrice:   "95",
			expectedApplied: "fallback",
			expectedDisc:    true,
		},
		{
			name: "given matching fixed price above list price should stop without discount",
			schemas: []response.CustomerSchema{
				assign(2, "premium", response.Rule{
					Type:          response.RuleProductFixedPrice,
					ProductID:     ptr(product.ID),
					FixedPriceEur: amount("120"),
				}),
				assign(1, "global", response.Rule{
					Type:               response.RuleGlobalDiscount,
					DiscountPercentage: amount("10"),
				}),
			},
			expectedPrice: "120",
		},
		{
			name: "given rules missing their value should fail open to original price",
			schemas: []response.CustomerSchema{
				assign(1, "broken",
					response.Rule{Type: response.RuleProductFixedPrice, ProductID: ptr(product.ID)},
					response.Rule{Type: response.RuleCategoryDiscount, Category: ptr("X")},
				),
			},
			expectedPrice: "100",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual := Resolve(product, test.schemas)
			assert.Equal(t, product.ID, actual.ProductID)
			assert.True(t, product.PriceEur.Equal(actual.OriginalPrice))
			assert.Truef(
				t,
				decimal.RequireFromString(test.expectedPrice).Equal(actual.DiscountedPrice),
				"expected %s got %s", test.expectedPrice, actual.DiscountedPrice,
			)
			assert.Equal(t, test.expectedDisc, actual.IsDiscounted)
			assert.Equal(t, test.expectedApplied, actual.AppliedSchemaName)
		})
	}
}

func TestResolveWithoutSchemasKeepsEveryPrice(t *testing.T) {
	for _, price := range []string{"0", "0.01", "19.99", "1000"} {
		product := newProduct(price, "X", nil)
		actual := Resolve(product, []response.CustomerSchema{})
		assert.True(t, actual.DiscountedPrice.Equal(actual.OriginalPrice))
		assert.False(t, actual.IsDiscounted)
		assert.Empty(t, actual.AppliedSchemaName)
	}
}

func TestDiscountRoundsToCents(t *testing.T) {
	actual := Discount(decimal.RequireFromString("19.99"), decimal.RequireFromString("15"))
	assert.Equal(t, "16.99", actual.StringFixed(2))

	actual = Discount(decimal.RequireFromString("10.05"), decimal.RequireFromString("50"))
	assert.Equal(t, "5.03", actual.StringFixed(2))
}

func TestSortByPriority(t *testing.T) {
	now := time.Now()
	low := response.CustomerSchema{Priority: 1, AssignedAt: now, Schema: response.Schema{ID: uuid.New(), Name: "low"}}
	highLate := response.CustomerSchema{Priority: 3, AssignedAt: now.Add(time.Minute), Schema: response.Schema{ID: uuid.New(), Name: "high late"}}
	highEarly := response.CustomerSchema{Priority: 3, AssignedAt: now, Schema: response.Schema{ID: uuid.New(), Name: "high early"}}

	schemas := []response.CustomerSchema{low, highLate, highEarly}
	SortByPriority(schemas)

	require.Len(t, schemas, 3)
	assert.Equal(t, "high early", schemas[0].Schema.Name)
	assert.Equal(t, "high late", schemas[1].Schema.Name)
	assert.Equal(t, "low", schemas[2].Schema.Name)
}

func TestSortByPriorityBreaksFullTiesBySchemaID(t *testing.T) {
	now := time.Now()
	a := response.CustomerSchema{Priority: 1, AssignedAt: now, Schema: response.Schema{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "a"}}
	b := response.CustomerSchema{Priority: 1, AssignedAt: now, Schema: response.Schema{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "b"}}

	schemas := []response.CustomerSchema{b, a}
	SortByPriority(schemas)
	assert.Equal(t, "a", schemas[0].Schema.Name)
	assert.Equal(t, "b", schemas[1].Schema.Name)
}
