package service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/pricing/cart/internal/item"
	"github.com/Alturino/pricing/cart/pkg/response"
	"github.com/Alturino/pricing/internal/log"
	pricingResponse "github.com/Alturino/pricing/pricing/pkg/response"
)

const (
	MergePricingKeep    = "keep"
	MergePricingResolve = "resolve"
)

type PriceClient interface {
	GetEffectivePrice(
		c context.Context,
		productID uuid.UUID,
		customerID *uuid.UUID,
	) (pricingResponse.EffectivePrice, error)
}

// Repricer decides the unit price of lines touched by a guest merge.
// merged[i] is true when items[i] received guest quantity or came from the
// guest cart.
type Repricer interface {
	Reprice(c context.Context, userID uuid.UUID, items []response.CartItem, merged []bool) []response.CartItem
}

// KeepExistingPrice keeps the price already on each line: the user's price
// for overlapping lines and the guest snapshot for guest-only lines.
type KeepExistingPrice struct{}

func (KeepExistingPrice) Reprice(
	_ context.Context,
	_ uuid.UUID,
	items []response.CartItem,
	_ []bool,
) []response.CartItem {
	return items
}

// ResolvePrice asks the pricing service for the authenticated customer's
// price of every merged line. Lines it cannot price keep their price.
type ResolvePrice struct {
	Client PriceClient
}

func (r ResolvePrice) Reprice(
	c context.Context,
	userID uuid.UUID,
	items []response.CartItem,
	merged []bool,
) []response.CartItem {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ResolvePrice Reprice").
		Str(log.KeyUserID, userID.String()).
		Logger()

	repriced := slices.Clone(items)
	for i, line := range repriced {
		if i >= len(merged) || !merged[i] || line.ProductID == uuid.Nil {
			continue
		}
		price, err := r.Client.GetEffectivePrice(c, line.ProductID, &userID)
		if err != nil {
			logger.Warn().
				Err(err).
				Str(log.KeyProductID, line.ProductID.String()).
				Msg("failed repricing merged item, keeping existing price")
			continue
		}
		line.UnitPrice = price.DiscountedPrice
		repriced[i] = item.Recompute(line)
	}
	return repriced
}

func NewRepricer(mergePricing string, client PriceClient) Repricer {
	if mergePricing == MergePricingResolve && client != nil {
		return ResolvePrice{Client: client}
	}
	return KeepExistingPrice{}
}
