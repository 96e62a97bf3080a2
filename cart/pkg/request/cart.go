package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lookup addresses a cart by exactly one of UserID or CartID.
type Lookup struct {
	UserID uuid.UUID
	CartID uuid.UUID
}

func (l Lookup) Valid() bool {
	return (l.UserID == uuid.Nil) != (l.CartID == uuid.Nil)
}

func (l Lookup) IsGuest() bool {
	return l.UserID == uuid.Nil && l.CartID != uuid.Nil
}

// MaxItemQuantity caps the quantity a single request may carry. It mirrors
// the lte bound in the validate tags below.
const MaxItemQuantity = 10000

type CartItem struct {
	ProductID uuid.UUID           `validate:"required_without=SKU"    json:"product_id"`
	SKU       string              `validate:"required_without=ProductID" json:"sku"`
	Quantity  int32               `validate:"required,gte=1,lte=10000" json:"quantity"`
	UnitPrice decimal.NullDecimal `validate:"dgte0"                   json:"unit_price"`
}

type CreateCart struct {
	Items []CartItem `validate:"dive" json:"items"`
}

// ItemKey identifies an item within a cart. ProductID wins over SKU.
type ItemKey struct {
	ProductID uuid.UUID
	SKU       string
}

type UpdateCartItem struct {
	Quantity  *int32              `validate:"omitempty,gte=1,lte=10000" json:"quantity,omitempty"`
	UnitPrice decimal.NullDecimal `validate:"dgte0"           json:"unit_price"`
	SKU       *string             `                           json:"sku,omitempty"`
}

type MergeCart struct {
	GuestCartID uuid.UUID `validate:"required" json:"guest_cart_id"`
}
