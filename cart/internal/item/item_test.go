package item

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/cart/pkg/request"
	"github.com/Alturino/pricing/cart/pkg/response"
)

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}

func assertTotals(t *testing.T, items []response.CartItem) {
	t.Helper()
	for _, item := range items {
		expected := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		assert.Truef(t, expected.Equal(item.TotalPrice), "item %s total %s want %s", item.SKU, item.TotalPrice, expected)
	}
}

func TestMatches(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name     string
		a        request.ItemKey
		b        request.ItemKey
		expected bool
	}{
		{
			name:     "given same product id should match",
			a:        request.ItemKey{ProductID: id, SKU: "A"},
			b:        request.ItemKey{ProductID: id, SKU: "B"},
			expected: true,
		},
		{
			name:     "given different product ids with same sku should not match",
			a:        request.ItemKey{ProductID: id, SKU: "A"},
			b:        request.ItemKey{ProductID: uuid.New(), SKU: "A"},
			expected: false,
		},
		{
			name:     "given one product id missing should match on sku",
			a:        request.ItemKey{SKU: "A"},
			b:        request.ItemKey{ProductID: id, SKU: "A"},
			expected: true,
		},
		{
			name:     "given both keys empty should not match",
			a:        request.ItemKey{},
			b:        request.ItemKey{},
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Matches(test.a, test.b))
		})
	}
}

func TestAdd(t *testing.T) {
	id := uuid.New()
	existing := []response.CartItem{New(id, "X", 2, price("90"))}

	t.Run("given new item should append it", func(t *testing.T) {
		actual, err := Add(existing, New(uuid.New(), "Y", 1, price("5")))
		require.NoError(t, err)
		require.Len(t, actual, 2)
		require.Len(t, existing, 1)
		assertTotals(t, actual)
	})

	t.Run("given existing item should sum quantity and take newest price", func(t *testing.T) {
		actual, err := Add(existing, New(id, "X", 3, price("80")))
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, int32(5), actual[0].Quantity)
		assert.True(t, price("80").Equal(actual[0].UnitPrice))
		assert.True(t, price("400").Equal(actual[0].TotalPrice))
		assert.Equal(t, int32(2), existing[0].Quantity)
	})

	t.Run("given zero quantity should fail", func(t *testing.T) {
		_, err := Add(existing, New(id, "X", 0, price("80")))
		assert.ErrorIs(t, err, inErrors.ErrInvalidQuantity)
	})

	t.Run("given sum reaching max int32 should keep it", func(t *testing.T) {
		full := []response.CartItem{New(id, "X", math.MaxInt32-1, price("1"))}
		actual, err := Add(full, New(id, "X", 1, price("1")))
		require.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), actual[0].Quantity)
		assertTotals(t, actual)
	})

	t.Run("given sum past max int32 should fail instead of wrapping", func(t *testing.T) {
		full := []response.CartItem{New(id, "X", math.MaxInt32, price("1"))}
		actual, err := Add(full, New(id, "X", 1, price("1")))
		assert.ErrorIs(t, err, inErrors.ErrInvalidQuantity)
		assert.Nil(t, actual)
		assert.Equal(t, int32(math.MaxInt32), full[0].Quantity)
	})
}

func TestUpdate(t *testing.T) {
	id := uuid.New()
	items := []response.CartItem{New(id, "X", 2, price("10"))}

	tests := []struct {
		name          string
		key           request.ItemKey
		patch         request.UpdateCartItem
		expectedQty   int32
		expectedTotal string
		expectedErr   error
	}{
		{
			name:          "given quantity change should recompute total",
			key:           request.ItemKey{ProductID: id},
			patch:         request.UpdateCartItem{Quantity: ptr(int32(4))},
			expectedQty:   4,
			expectedTotal: "40",
		},
		{
			name:          "given price change should recompute total",
			key:           request.ItemKey{SKU: "X"},
			patch:         request.UpdateCartItem{UnitPrice: decimal.NewNullDecimal(price("12.5"))},
			expectedQty:   2,
			expectedTotal: "25",
		},
		{
			name:        "given unknown key should return item not found",
			key:         request.ItemKey{SKU: "nope"},
			patch:       request.UpdateCartItem{Quantity: ptr(int32(1))},
			expectedErr: inErrors.ErrCartItemNotFound,
		},
		{
			name:        "given zero quantity should fail",
			key:         request.ItemKey{ProductID: id},
			patch:       request.UpdateCartItem{Quantity: ptr(int32(0))},
			expectedErr: inErrors.ErrInvalidQuantity,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := Update(items, test.key, test.patch)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expectedQty, actual[0].Quantity)
			assert.True(t, price(test.expectedTotal).Equal(actual[0].TotalPrice))
			assertTotals(t, actual)
		})
	}
}

func TestRemove(t *testing.T) {
	id := uuid.New()
	items := []response.CartItem{New(id, "X", 1, price("1")), New(uuid.New(), "Y", 1, price("2"))}

	actual := Remove(items, request.ItemKey{ProductID: id})
	require.Len(t, actual, 1)
	assert.Equal(t, "Y", actual[0].SKU)
	require.Len(t, items, 2)

	assert.Len(t, Remove(items, request.ItemKey{SKU: "missing"}), 2)
}

func TestMerge(t *testing.T) {
	user := []response.CartItem{New(uuid.Nil, "X", 1, price("100"))}
	guest := []response.CartItem{
		New(uuid.Nil, "X", 2, price("90")),
		New(uuid.Nil, "Z", 1, price("7")),
	}

	actual, touched, err := Merge(user, guest)
	require.NoError(t, err)

	require.Len(t, actual, 2)
	assert.Equal(t, []bool{true, true}, touched)
	assert.Equal(t, int32(3), actual[0].Quantity)
	assert.True(t, price("100").Equal(actual[0].UnitPrice))
	assert.True(t, price("300").Equal(actual[0].TotalPrice))
	assert.True(t, price("7").Equal(actual[1].UnitPrice))
	assertTotals(t, actual)
}

func TestMergeLeavesUntouchedUserLines(t *testing.T) {
	user := []response.CartItem{New(uuid.New(), "A", 1, price("1")), New(uuid.New(), "B", 1, price("1"))}
	guest := []response.CartItem{New(user[1].ProductID, "B", 1, price("1"))}

	_, touched, err := Merge(user, guest)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, touched)
}

func TestMergeRejectsQuantityOverflow(t *testing.T) {
	user := []response.CartItem{New(uuid.Nil, "X", math.MaxInt32, price("1"))}
	guest := []response.CartItem{New(uuid.Nil, "X", 1, price("1"))}

	actual, touched, err := Merge(user, guest)
	assert.ErrorIs(t, err, inErrors.ErrInvalidQuantity)
	assert.Nil(t, actual)
	assert.Nil(t, touched)
	assert.Equal(t, int32(math.MaxInt32), user[0].Quantity)
}

func TestTotalsHoldAcrossMutations(t *testing.T) {
	id := uuid.New()
	items := []response.CartItem{}
	var err error
	steps := []func(){
		func() { items, err = Add(items, New(id, "X", 1, price("19.99"))) },
		func() { items, err = Add(items, New(id, "X", 2, price("17.49"))) },
		func() { items, err = Update(items, request.ItemKey{ProductID: id}, request.UpdateCartItem{Quantity: ptr(int32(7))}) },
		func() {
			items, err = Update(items, request.ItemKey{SKU: "X"}, request.UpdateCartItem{UnitPrice: decimal.NewNullDecimal(price("0.33"))})
		},
		func() { items, err = Add(items, New(uuid.New(), "Y", 3, price("1.01"))) },
	}
	for _, step := range steps {
		step()
		require.NoError(t, err)
		assertTotals(t, items)
	}
}
