// Package item holds the pure cart item mutations. Every function returns a
// new slice and leaves its input untouched; every item it returns satisfies
// TotalPrice == UnitPrice * Quantity.
package item

import (
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/cart/pkg/request"
	"github.com/Alturino/pricing/cart/pkg/response"
)

// Matches reports whether a and b are the same line. Product ids decide when
// both are known, otherwise a shared non-empty sku does.
func Matches(a, b request.ItemKey) bool {
	if a.ProductID != uuid.Nil && b.ProductID != uuid.Nil {
		return a.ProductID == b.ProductID
	}
	return a.SKU != "" && a.SKU == b.SKU
}

func Key(item response.CartItem) request.ItemKey {
	return request.ItemKey{ProductID: item.ProductID, SKU: item.SKU}
}

func Recompute(item response.CartItem) response.CartItem {
	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
	return item
}

func New(productID uuid.UUID, sku string, quantity int32, unitPrice decimal.Decimal) response.CartItem {
	return Recompute(response.CartItem{
		ProductID: productID,
		SKU:       sku,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
}

// sum adds two line quantities without wrapping around int32.
func sum(a, b int32) (int32, error) {
	total := int64(a) + int64(b)
	if total <= 0 || total > math.MaxInt32 {
		return 0, inErrors.ErrInvalidQuantity
	}
	return int32(total), nil
}

func Find(items []response.CartItem, key request.ItemKey) int {
	return slices.IndexFunc(items, func(item response.CartItem) bool {
		return Matches(Key(item), key)
	})
}

// Add appends incoming, or folds it into the matching line by summing the
// quantities. The incoming unit price replaces the stored one.
func Add(items []response.CartItem, incoming response.CartItem) ([]response.CartItem, error) {
	if incoming.Quantity <= 0 {
		return nil, inErrors.ErrInvalidQuantity
	}
	added := slices.Clone(items)
	i := Find(added, Key(incoming))
	if i < 0 {
		return append(added, Recompute(incoming)), nil
	}

	existing := added[i]
	quantity, err := sum(existing.Quantity, incoming.Quantity)
	if err != nil {
		return nil, err
	}
	existing.Quantity = quantity
	existing.UnitPrice = incoming.UnitPrice
	if existing.ProductID == uuid.Nil {
		existing.ProductID = incoming.ProductID
	}
	if existing.SKU == "" {
		existing.SKU = incoming.SKU
	}
	added[i] = Recompute(existing)
	return added, nil
}

func Update(
	items []response.CartItem,
	key request.ItemKey,
	patch request.UpdateCartItem,
) ([]response.CartItem, error) {
	i := Find(items, key)
	if i < 0 {
		return nil, inErrors.ErrCartItemNotFound
	}
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return nil, inErrors.ErrInvalidQuantity
	}

	updated := slices.Clone(items)
	item := updated[i]
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.UnitPrice.Valid {
		item.UnitPrice = patch.UnitPrice.Decimal
	}
	if patch.SKU != nil {
		item.SKU = *patch.SKU
	}
	updated[i] = Recompute(item)
	return updated, nil
}

// Remove drops every line matching key. A missing key leaves items as is.
func Remove(items []response.CartItem, key request.ItemKey) []response.CartItem {
	return slices.DeleteFunc(slices.Clone(items), func(item response.CartItem) bool {
		return Matches(Key(item), key)
	})
}

// Merge folds guest lines into the user's lines. Overlapping lines sum their
// quantities and keep the user's unit price; guest-only lines are appended
// with their own snapshot price. The returned flags mark lines that came
// from the guest cart, in the order of the returned slice. A summed quantity
// past the int32 range fails with ErrInvalidQuantity.
func Merge(
	userItems []response.CartItem,
	guestItems []response.CartItem,
) ([]response.CartItem, []bool, error) {
	merged := slices.Clone(userItems)
	touched := make([]bool, len(merged), len(merged)+len(guestItems))
	for _, guest := range guestItems {
		i := Find(merged, Key(guest))
		if i < 0 {
			merged = append(merged, Recompute(guest))
			touched = append(touched, true)
			continue
		}
		existing := merged[i]
		quantity, err := sum(existing.Quantity, guest.Quantity)
		if err != nil {
			return nil, nil, err
		}
		existing.Quantity = quantity
		merged[i] = Recompute(existing)
		touched[i] = true
	}
	return merged, touched, nil
}
