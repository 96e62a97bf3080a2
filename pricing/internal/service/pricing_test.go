package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/internal/repository"
	"github.com/Alturino/pricing/pricing/internal/cache"
	"github.com/Alturino/pricing/pricing/internal/margin"
	"github.com/Alturino/pricing/pricing/pkg/request"
	"github.com/Alturino/pricing/pricing/pkg/response"
)

func newValidator() margin.Validator {
	return margin.NewValidator(map[string]decimal.Decimal{
		"Electronics": decimal.NewFromInt(2),
		"Appliances":  decimal.NewFromInt(5),
	})
}

func testContext() context.Context {
	logger := zerolog.Nop()
	return logger.WithContext(context.Background())
}

func TestGetEffectivePrice(t *testing.T) {
	repo := newFakeRepository()
	laptop := repo.addProduct("Laptop", "Electronics", ptr("Notebooks"), "400", "300")
	vip := uuid.New()
	nobody := uuid.New()
	repo.assign(vip, "vip", 10,
		repository.PricingSchemaRule{Type: string(response.RuleCategoryDiscount), Category: repository.Text(ptr("Electronics")), DiscountPercentage: repository.Numeric(decimal.NewFromInt(20))},
	)
	repo.assign(vip, "everyone", 1, percentRule(string(response.RuleGlobalDiscount), "5"))

	tests := []struct {
		name          string
		productID     uuid.UUID
		customerID    *uuid.UUID
		expectedPrice string
		expectedName  string
		expectedErr   error
	}{
		{
			name:          "given anonymous customer should return list price",
			productID:     laptop.ID,
			customerID:    nil,
			expectedPrice: "400",
		},
		{
			name:          "given customer without schemas should return list price",
			productID:     laptop.ID,
			customerID:    &nobody,
			expectedPrice: "400",
		},
		{
			name:          "given customer with schemas should apply highest priority schema only",
			productID:     laptop.ID,
			customerID:    &vip,
			expectedPrice: "320",
			expectedName:  "vip",
		},
		{
			name:        "given unknown product should return product not found",
			productID:   uuid.New(),
			customerID:  &vip,
			expectedErr: inErrors.ErrProductNotFound,
		},
	}

	pricingService := NewPricingService(repo, nil, newValidator(), time.Minute)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := pricingService.GetEffectivePrice(testContext(), test.productID, test.customerID)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Truef(
				t,
				decimal.RequireFromString(test.expectedPrice).Equal(actual.DiscountedPrice),
				"expected %s got %s", test.expectedPrice, actual.DiscountedPrice,
			)
			assert.Equal(t, test.expectedName, actual.AppliedSchemaName)
		})
	}
}

func TestGetEffectivePriceFailsOpenOnPricingDataError(t *testing.T) {
	repo := newFakeRepository()
	laptop := repo.addProduct("Laptop", "Electronics", nil, "400", "300")
	customerID := uuid.New()
	repo.assign(customerID, "vip", 10, percentRule(string(response.RuleGlobalDiscount), "50"))
	repo.pricingErr = errDatabaseDown

	pricingService := NewPricingService(repo, nil, newValidator(), time.Minute)
	actual, err := pricingService.GetEffectivePrice(testContext(), laptop.ID, &customerID)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(400).Equal(actual.DiscountedPrice))
	assert.False(t, actual.IsDiscounted)
}

func TestGetEffectivePricesLoadsPricingDataOnce(t *testing.T) {
	repo := newFakeRepository()
	laptop := repo.addProduct("Laptop", "Electronics", nil, "400", "300")
	fridge := repo.addProduct("Fridge", "Appliances", nil, "100", "80")
	customerID := uuid.New()
	repo.assign(customerID, "everyone", 1, percentRule(string(response.RuleGlobalDiscount), "10"))

	pricingService := NewPricingService(repo, nil, newValidator(), time.Minute)
	actual, err := pricingService.GetEffectivePrices(testContext(), request.EffectivePrices{
		ProductIDs: []uuid.UUID{laptop.ID, fridge.ID, uuid.New()},
		CustomerID: &customerID,
	})

	require.NoError(t, err)
	require.Len(t, actual, 2)
	assert.Equal(t, 1, repo.pricingCalls)
	byProduct := map[uuid.UUID]response.EffectivePrice{}
	for _, price := range actual {
		byProduct[price.ProductID] = price
	}
	assert.True(t, decimal.NewFromInt(360).Equal(byProduct[laptop.ID].DiscountedPrice))
	assert.True(t, decimal.NewFromInt(90).Equal(byProduct[fridge.ID].DiscountedPrice))
}

func TestValidatePricingRule(t *testing.T) {
	repo := newFakeRepository()
	laptop := repo.addProduct("Laptop", "Electronics", ptr("Notebooks"), "400", "300")
	repo.addProduct("Fridge", "Appliances", ptr("Cooling"), "100", "80")
	repo.addProduct("Cable", "Accessories", nil, "10", "9")

	tests := []struct {
		name          string
		rule          request.PricingRule
		expectedValid bool
		expectedCount int
	}{
		{
			name: "given fixed price below laptop minimum should be invalid",
			rule: request.PricingRule{
				Type:          string(response.RuleProductFixedPrice),
				ProductID:     &laptop.ID,
				FixedPriceEur: decimal.NewNullDecimal(decimal.NewFromInt(301)),
			},
			expectedValid: false,
			expectedCount: 1,
		},
		{
			name: "given fixed price for unknown product should be valid with no affected products",
			rule: request.PricingRule{
				Type:          string(response.RuleProductFixedPrice),
				ProductID:     ptr(uuid.New()),
				FixedPriceEur: decimal.NewNullDecimal(decimal.NewFromInt(1)),
			},
			expectedValid: true,
			expectedCount: 0,
		},
		{
			name: "given appliances discount above headroom should be invalid",
			rule: request.PricingRule{
				Type:               string(response.RuleCategoryDiscount),
				Category:           ptr("Appliances"),
				DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(20)),
			},
			expectedValid: false,
			expectedCount: 1,
		},
		{
			name: "given subcategory discount within headroom should be valid",
			rule: request.PricingRule{
				Type:               string(response.RuleSubcategoryDiscount),
				Subcategory:        ptr("Notebooks"),
				DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(20)),
			},
			expectedValid: true,
			expectedCount: 1,
		},
		{
			name: "given global discount should check every product",
			rule: request.PricingRule{
				Type:               string(response.RuleGlobalDiscount),
				DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			},
			expectedValid: true,
			expectedCount: 3,
		},
	}

	pricingService := NewPricingService(repo, nil, newValidator(), time.Minute)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := pricingService.ValidatePricingRule(testContext(), test.rule)
			require.NoError(t, err)
			assert.Equal(t, test.expectedValid, actual.Valid)
			assert.Equal(t, test.expectedCount, actual.AffectedProductCount)
		})
	}
}

func TestValidatePricingRuleRejectsUnknownType(t *testing.T) {
	pricingService := NewPricingService(newFakeRepository(), nil, newValidator(), time.Minute)
	_, err := pricingService.ValidatePricingRule(testContext(), request.PricingRule{Type: "bogus"})
	assert.ErrorIs(t, err, inErrors.ErrInvalidRuleType)
}

func TestGetCustomerPricingDataUsesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	c := testContext()
	redisClient, redisContainer := setupRedis(t, c)
	defer teardownRedis(t, redisClient, redisContainer)

	repo := newFakeRepository()
	customerID := uuid.New()
	repo.assign(customerID, "low", 1, percentRule(string(response.RuleGlobalDiscount), "5"))
	repo.assign(customerID, "high", 9, percentRule(string(response.RuleGlobalDiscount), "10"))

	pricingService := NewPricingService(repo, redisClient, newValidator(), time.Minute)

	first, err := pricingService.GetCustomerPricingData(c, customerID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "high", first[0].Schema.Name)

	second, err := pricingService.GetCustomerPricingData(c, customerID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.pricingCalls)
	require.Len(t, second, 2)
	assert.Equal(t, "high", second[0].Schema.Name)
	assert.True(t, decimal.NewFromInt(10).Equal(second[0].Schema.Rules[0].DiscountPercentage.Decimal))

	ttl, err := redisClient.TTL(c, fmt.Sprintf(cache.KEY_CUSTOMER_PRICING, customerID.String())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
