package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/pricing/pkg/request"
)

func TestInsertProduct(t *testing.T) {
	repo := newFakeRepository()
	products := NewProductService(repo)
	c := testContext()

	fridge := request.Product{
		Name:        "Fridge",
		SKU:         "FRIDGE-1",
		Category:    "Appliances",
		Subcategory: ptr("Cooling"),
		PriceEur:    decimal.NewFromInt(400),
		CostEur:     decimal.NewFromInt(300),
	}

	inserted, err := products.InsertProduct(c, fridge)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, inserted.ID)
	assert.Equal(t, "FRIDGE-1", inserted.SKU)
	require.NotNil(t, inserted.Subcategory)
	assert.Equal(t, "Cooling", *inserted.Subcategory)
	assert.True(t, decimal.NewFromInt(400).Equal(inserted.PriceEur))

	_, err = products.InsertProduct(c, fridge)
	assert.True(t, errors.Is(err, inErrors.ErrDuplicateSku))
}

func TestGetProducts(t *testing.T) {
	repo := newFakeRepository()
	repo.addProduct("Laptop", "Electronics", ptr("Notebooks"), "1000", "800")
	repo.addProduct("Phone", "Electronics", ptr("Phones"), "500", "400")
	repo.addProduct("Fridge", "Appliances", nil, "400", "300")
	products := NewProductService(repo)

	tests := []struct {
		name     string
		filter   request.ProductFilter
		expected []string
	}{
		{
			name:     "given no filter should return the whole catalog",
			filter:   request.ProductFilter{},
			expected: []string{"Laptop", "Phone", "Fridge"},
		},
		{
			name:     "given category should return its products",
			filter:   request.ProductFilter{Category: "Electronics"},
			expected: []string{"Laptop", "Phone"},
		},
		{
			name:     "given subcategory and category should filter by subcategory",
			filter:   request.ProductFilter{Category: "Electronics", Subcategory: "Phones"},
			expected: []string{"Phone"},
		},
		{
			name:     "given unknown category should return nothing",
			filter:   request.ProductFilter{Category: "Garden"},
			expected: []string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := products.GetProducts(testContext(), test.filter)
			require.NoError(t, err)
			names := make([]string, len(actual))
			for i, p := range actual {
				names[i] = p.Name
			}
			assert.Equal(t, test.expected, names)
		})
	}
}

func TestFindProductById(t *testing.T) {
	repo := newFakeRepository()
	laptop := repo.addProduct("Laptop", "Electronics", nil, "1000", "800")
	products := NewProductService(repo)

	found, err := products.FindProductById(testContext(), laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", found.Name)
	assert.Nil(t, found.Subcategory)

	_, err = products.FindProductById(testContext(), uuid.New())
	assert.True(t, errors.Is(err, inErrors.ErrProductNotFound))
}
