package errors

import (
	"errors"
)

var (
	ErrEmptyAuth         = errors.New("missing authorization")
	ErrEmptySubject      = errors.New("missing subject")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateSku      = errors.New("product sku already exists")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInvalidCartLookup = errors.New("cart lookup requires exactly one of userId or cartId")
	ErrCartConflict      = errors.New("cart was modified concurrently")
	ErrCartNotGuest      = errors.New("cart is not a guest cart")
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 2147483647")
	ErrInvalidRuleType   = errors.New("unknown pricing rule type")
	ErrMissingPrice      = errors.New("cart item has no unit price")
)
