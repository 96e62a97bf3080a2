package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is owned by exactly one of a user or an anonymous session. A guest
// cart has no UserID and is addressed by its ID.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Items     []CartItem `json:"items"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c Cart) IsGuest() bool {
	return c.UserID == nil
}

// CartItem holds the unit price resolved when the item was added, not a
// live reference to the product price.
type CartItem struct {
	ProductID  uuid.UUID       `json:"product_id"`
	SKU        string          `json:"sku"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
