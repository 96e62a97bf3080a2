package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alturino/pricing/cart/internal/item"
	"github.com/Alturino/pricing/cart/internal/otel"
	"github.com/Alturino/pricing/cart/pkg/request"
	"github.com/Alturino/pricing/cart/pkg/response"
	"github.com/Alturino/pricing/internal/config"
	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/internal/log"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/repository"
)

type WriteMode string

const (
	// WriteOptimistic only writes when the cart version is unchanged since
	// the read and retries the whole read-compute-write otherwise.
	WriteOptimistic WriteMode = "optimistic"
	// WriteLastWins writes the full record unconditionally. Concurrent
	// mutations of one cart can lose updates.
	WriteLastWins WriteMode = "last_write_wins"
)

type CartRepository interface {
	FindCartById(c context.Context, id uuid.UUID) (repository.Cart, error)
	FindCartByUserId(c context.Context, userID uuid.UUID) (repository.Cart, error)
	InsertCart(c context.Context, arg repository.InsertCartParams) (repository.Cart, error)
	UpdateCartItems(c context.Context, arg repository.UpdateCartItemsParams) (int64, error)
	OverwriteCartItems(c context.Context, arg repository.OverwriteCartItemsParams) (int64, error)
	UpdateCartOwner(c context.Context, arg repository.UpdateCartOwnerParams) (int64, error)
	DeleteCartByIdAndVersion(c context.Context, arg repository.DeleteCartByIdAndVersionParams) (int64, error)
}

// errStaleMerge rolls back a merge whose guest or user cart changed after it
// was read.
var errStaleMerge = errors.New("cart changed while merging")

// TxRunner runs fn against a repository bound to one transaction.
type TxRunner func(c context.Context, fn func(CartRepository) error) error

func PgxTxRunner(pool *pgxpool.Pool, queries *repository.Queries) TxRunner {
	return func(c context.Context, fn func(CartRepository) error) error {
		tx, err := pool.BeginTx(c, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("failed beginning transaction with error=%w", err)
		}
		defer func() {
			if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				zerolog.Ctx(c).Error().Err(err).Msg("failed rolling back transaction")
			}
		}()
		if err = fn(queries.WithTx(tx)); err != nil {
			return err
		}
		if err = tx.Commit(c); err != nil {
			return fmt.Errorf("failed committing transaction with error=%w", err)
		}
		return nil
	}
}

type CartService struct {
	queries    CartRepository
	inTx       TxRunner
	pricing    PriceClient
	repricer   Repricer
	writeMode  WriteMode
	maxRetries int
}

// NewCartService wires the cart store. pricing may be nil, in which case
// items must carry their own unit price and merges keep existing prices.
func NewCartService(
	queries CartRepository,
	inTx TxRunner,
	pricing PriceClient,
	cfg config.Cart,
) *CartService {
	if inTx == nil {
		inTx = func(c context.Context, fn func(CartRepository) error) error { return fn(queries) }
	}
	writeMode := WriteMode(cfg.WriteMode)
	if writeMode != WriteLastWins {
		writeMode = WriteOptimistic
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &CartService{
		queries:    queries,
		inTx:       inTx,
		pricing:    pricing,
		repricer:   NewRepricer(cfg.MergePricing, pricing),
		writeMode:  writeMode,
		maxRetries: maxRetries,
	}
}

func (s *CartService) WithRepricer(repricer Repricer) *CartService {
	s.repricer = repricer
	return s
}

func lookupLogger(c context.Context, tag string, lookup request.Lookup) zerolog.Logger {
	ctx := zerolog.Ctx(c).With().Str(log.KeyTag, tag)
	if lookup.UserID != uuid.Nil {
		ctx = ctx.Str(log.KeyUserID, lookup.UserID.String())
	}
	if lookup.CartID != uuid.Nil {
		ctx = ctx.Str(log.KeyCartID, lookup.CartID.String())
	}
	return ctx.Logger()
}

// load finds the cart addressed by lookup. A guest lookup never sees a cart
// that already belongs to a user.
func (s *CartService) load(c context.Context, lookup request.Lookup) (repository.Cart, error) {
	if !lookup.Valid() {
		return repository.Cart{}, inErrors.ErrInvalidCartLookup
	}
	var (
		cart repository.Cart
		err  error
	)
	if lookup.IsGuest() {
		cart, err = s.queries.FindCartById(c, lookup.CartID)
		if err == nil && cart.UserID.Valid {
			return repository.Cart{}, inErrors.ErrCartNotFound
		}
	} else {
		cart, err = s.queries.FindCartByUserId(c, lookup.UserID)
	}
	if repository.IsNotFound(err) {
		return repository.Cart{}, inErrors.ErrCartNotFound
	}
	return cart, err
}

func (s *CartService) insert(
	c context.Context,
	queries CartRepository,
	lookup request.Lookup,
	items []response.CartItem,
) (repository.Cart, error) {
	encoded, err := repository.CartItems(items)
	if err != nil {
		return repository.Cart{}, err
	}
	arg := repository.InsertCartParams{ID: lookup.CartID, Items: encoded}
	if !lookup.IsGuest() {
		arg.ID = uuid.New()
		arg.UserID = repository.UUID(&lookup.UserID)
	}
	return queries.InsertCart(c, arg)
}

// write stores items over cart and reports whether the write landed.
func (s *CartService) write(
	c context.Context,
	queries CartRepository,
	cart repository.Cart,
	items []response.CartItem,
) (bool, error) {
	encoded, err := repository.CartItems(items)
	if err != nil {
		return false, err
	}
	var rows int64
	if s.writeMode == WriteLastWins {
		rows, err = queries.OverwriteCartItems(
			c,
			repository.OverwriteCartItemsParams{ID: cart.ID, Items: encoded},
		)
	} else {
		rows, err = queries.UpdateCartItems(
			c,
			repository.UpdateCartItemsParams{ID: cart.ID, Items: encoded, Version: cart.Version},
		)
	}
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func written(cart repository.Cart, items []response.CartItem) (response.Cart, error) {
	res, err := cart.Response()
	if err != nil {
		return response.Cart{}, err
	}
	if items == nil {
		items = []response.CartItem{}
	}
	res.Items = items
	res.Version = cart.Version + 1
	res.UpdatedAt = time.Now()
	return res, nil
}

// mutate runs the read, compute, write cycle every cart mutation shares.
// When create is set a missing cart is inserted with compute(nil).
func (s *CartService) mutate(
	c context.Context,
	lookup request.Lookup,
	create bool,
	compute func([]response.CartItem) ([]response.CartItem, error),
) (response.Cart, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyCartWriteMode, string(s.writeMode)).Logger()

	for attempt := 0; ; attempt++ {
		logger := logger.With().Int(log.KeyAttempt, attempt).Logger()

		logger.Trace().Msg("reading cart")
		cart, err := s.load(c, lookup)
		if errors.Is(err, inErrors.ErrCartNotFound) && create {
			items, err := compute(nil)
			if err != nil {
				return response.Cart{}, err
			}
			logger.Trace().Msg("inserting cart")
			inserted, err := s.insert(c, s.queries, lookup, items)
			if repository.IsUniqueViolation(err) && attempt < s.maxRetries {
				otel.CartConflicts.Add(c, 1, metric.WithAttributes(attribute.String("op", "insert")))
				logger.Debug().Msg("cart created concurrently, retrying")
				continue
			}
			if repository.IsUniqueViolation(err) {
				return response.Cart{}, inErrors.ErrCartConflict
			}
			if err != nil {
				return response.Cart{}, err
			}
			return inserted.Response()
		}
		if err != nil {
			return response.Cart{}, err
		}

		current, err := cart.Response()
		if err != nil {
			return response.Cart{}, fmt.Errorf("failed decoding cart items with error=%w", err)
		}
		items, err := compute(current.Items)
		if err != nil {
			return response.Cart{}, err
		}

		logger.Trace().Int64(log.KeyCartVersion, cart.Version).Msg("writing cart")
		ok, err := s.write(c, s.queries, cart, items)
		if err != nil {
			return response.Cart{}, err
		}
		if ok {
			return written(cart, items)
		}
		if s.writeMode == WriteLastWins {
			return response.Cart{}, inErrors.ErrCartNotFound
		}

		otel.CartConflicts.Add(c, 1, metric.WithAttributes(attribute.String("op", "update")))
		if attempt >= s.maxRetries {
			return response.Cart{}, inErrors.ErrCartConflict
		}
		logger.Debug().Msg("cart version moved, retrying")
	}
}

// price fills in the unit price of an incoming item, asking the pricing
// service when the caller did not send one.
func (s *CartService) price(
	c context.Context,
	lookup request.Lookup,
	incoming request.CartItem,
) (response.CartItem, error) {
	if incoming.UnitPrice.Valid {
		return item.New(incoming.ProductID, incoming.SKU, incoming.Quantity, incoming.UnitPrice.Decimal), nil
	}
	if s.pricing == nil || incoming.ProductID == uuid.Nil {
		return response.CartItem{}, inErrors.ErrMissingPrice
	}
	var customerID *uuid.UUID
	if !lookup.IsGuest() {
		customerID = &lookup.UserID
	}
	price, err := s.pricing.GetEffectivePrice(c, incoming.ProductID, customerID)
	if err != nil {
		return response.CartItem{}, fmt.Errorf("failed resolving unit price with error=%w", err)
	}
	return item.New(incoming.ProductID, incoming.SKU, incoming.Quantity, price.DiscountedPrice), nil
}

func (s *CartService) GetCart(c context.Context, lookup request.Lookup) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService GetCart")
	defer span.End()

	logger := lookupLogger(c, "CartService GetCart", lookup).
		With().
		Str(log.KeyProcess, "finding cart").
		Logger()

	logger.Trace().Msg("finding cart")
	cart, err := s.load(c, lookup)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	res, err := cart.Response()
	if err != nil {
		err = fmt.Errorf("failed mapping cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int(log.KeyCartItemsCount, len(res.Items)).Msg("found cart")

	return res, nil
}

// CreateCart creates the cart for lookup holding param.Items. Items with the
// same key are folded together. An existing cart is a conflict.
func (s *CartService) CreateCart(
	c context.Context,
	lookup request.Lookup,
	param request.CreateCart,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService CreateCart")
	defer span.End()

	logger := lookupLogger(c, "CartService CreateCart", lookup).
		With().
		Int(log.KeyCartItemsCount, len(param.Items)).
		Logger()

	if !lookup.Valid() {
		err := fmt.Errorf("failed creating cart with error=%w", inErrors.ErrInvalidCartLookup)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "pricing cart items").Logger()
	logger.Trace().Msg("pricing cart items")
	items := []response.CartItem{}
	for _, incoming := range param.Items {
		priced, err := s.price(c, lookup, incoming)
		if err == nil {
			items, err = item.Add(items, priced)
		}
		if err != nil {
			err = fmt.Errorf("failed pricing cart item with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Cart{}, err
		}
	}
	logger.Trace().Msg("priced cart items")

	logger = logger.With().Str(log.KeyProcess, "inserting cart").Logger()
	cart, err := s.insert(c, s.queries, lookup, items)
	if repository.IsUniqueViolation(err) {
		err = inErrors.ErrCartConflict
	}
	if err != nil {
		err = fmt.Errorf("failed inserting cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("inserted cart")

	return cart.Response()
}

// AddItem creates the cart on first add. A line already in the cart gets the
// incoming quantity added and takes the incoming unit price.
func (s *CartService) AddItem(
	c context.Context,
	lookup request.Lookup,
	param request.CartItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := lookupLogger(c, "CartService AddItem", lookup).
		With().
		Any(log.KeyCartItem, param).
		Str(log.KeyProcess, "pricing cart item").
		Logger()

	if !lookup.Valid() {
		err := fmt.Errorf("failed adding cart item with error=%w", inErrors.ErrInvalidCartLookup)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger.Trace().Msg("pricing cart item")
	c = logger.WithContext(c)
	incoming, err := s.price(c, lookup, param)
	if err != nil {
		err = fmt.Errorf("failed pricing cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "adding cart item").Logger()
	c = logger.WithContext(c)
	cart, err := s.mutate(c, lookup, true, func(items []response.CartItem) ([]response.CartItem, error) {
		return item.Add(items, incoming)
	})
	if err != nil {
		err = fmt.Errorf("failed adding cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int64(log.KeyCartVersion, cart.Version).Msg("added cart item")

	return cart, nil
}

func (s *CartService) UpdateItem(
	c context.Context,
	lookup request.Lookup,
	key request.ItemKey,
	patch request.UpdateCartItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateItem")
	defer span.End()

	logger := lookupLogger(c, "CartService UpdateItem", lookup).
		With().
		Any(log.KeyCartItem, key).
		Str(log.KeyProcess, "updating cart item").
		Logger()

	logger.Trace().Msg("updating cart item")
	c = logger.WithContext(c)
	cart, err := s.mutate(c, lookup, false, func(items []response.CartItem) ([]response.CartItem, error) {
		return item.Update(items, key, patch)
	})
	if err != nil {
		err = fmt.Errorf("failed updating cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int64(log.KeyCartVersion, cart.Version).Msg("updated cart item")

	return cart, nil
}

func (s *CartService) RemoveItem(
	c context.Context,
	lookup request.Lookup,
	key request.ItemKey,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := lookupLogger(c, "CartService RemoveItem", lookup).
		With().
		Any(log.KeyCartItem, key).
		Str(log.KeyProcess, "removing cart item").
		Logger()

	logger.Trace().Msg("removing cart item")
	c = logger.WithContext(c)
	cart, err := s.mutate(c, lookup, false, func(items []response.CartItem) ([]response.CartItem, error) {
		return item.Remove(items, key), nil
	})
	if err != nil {
		err = fmt.Errorf("failed removing cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int64(log.KeyCartVersion, cart.Version).Msg("removed cart item")

	return cart, nil
}

func (s *CartService) ClearCart(c context.Context, lookup request.Lookup) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := lookupLogger(c, "CartService ClearCart", lookup).
		With().
		Str(log.KeyProcess, "clearing cart").
		Logger()

	logger.Trace().Msg("clearing cart")
	c = logger.WithContext(c)
	cart, err := s.mutate(c, lookup, false, func([]response.CartItem) ([]response.CartItem, error) {
		return []response.CartItem{}, nil
	})
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int64(log.KeyCartVersion, cart.Version).Msg("cleared cart")

	return cart, nil
}

// MergeGuestCartIntoUser moves the guest cart's lines into the user's cart
// and deletes the guest cart. Without a user cart the guest cart is handed
// over to the user as is.
func (s *CartService) MergeGuestCartIntoUser(
	c context.Context,
	userID uuid.UUID,
	guestCartID uuid.UUID,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService MergeGuestCartIntoUser")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService MergeGuestCartIntoUser").
		Str(log.KeyUserID, userID.String()).
		Str(log.KeyGuestCartID, guestCartID.String()).
		Str(log.KeyCartWriteMode, string(s.writeMode)).
		Logger()

	fail := func(err error) (response.Cart, error) {
		err = fmt.Errorf("failed merging guest cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	if userID == uuid.Nil || guestCartID == uuid.Nil {
		return fail(inErrors.ErrInvalidCartLookup)
	}

	for attempt := 0; ; attempt++ {
		logger := logger.With().Int(log.KeyAttempt, attempt).Logger()
		c := logger.WithContext(c)

		logger.Trace().Str(log.KeyProcess, "finding guest cart").Msg("finding guest cart")
		guest, err := s.queries.FindCartById(c, guestCartID)
		if repository.IsNotFound(err) {
			return fail(inErrors.ErrCartNotFound)
		}
		if err != nil {
			return fail(err)
		}
		if guest.UserID.Valid {
			return fail(inErrors.ErrCartNotGuest)
		}

		logger.Trace().Str(log.KeyProcess, "finding user cart").Msg("finding user cart")
		user, err := s.queries.FindCartByUserId(c, userID)
		if err != nil && !repository.IsNotFound(err) {
			return fail(err)
		}

		var (
			merged response.Cart
			landed bool
		)
		if repository.IsNotFound(err) {
			logger.Trace().Str(log.KeyProcess, "reassigning guest cart").Msg("reassigning guest cart")
			merged, landed, err = s.reassign(c, guest, userID)
		} else {
			logger.Trace().Str(log.KeyProcess, "merging cart items").Msg("merging cart items")
			merged, landed, err = s.mergeInto(c, user, guest, userID)
		}
		if err != nil && !repository.IsUniqueViolation(err) {
			return fail(err)
		}
		if landed && err == nil {
			otel.CartMerges.Add(c, 1)
			logger.Info().
				Str(log.KeyCartID, merged.ID.String()).
				Int(log.KeyCartItemsCount, len(merged.Items)).
				Msg("merged guest cart")
			return merged, nil
		}

		otel.CartConflicts.Add(c, 1, metric.WithAttributes(attribute.String("op", "merge")))
		if attempt >= s.maxRetries {
			return fail(inErrors.ErrCartConflict)
		}
		logger.Debug().Msg("carts changed while merging, retrying")
	}
}

func (s *CartService) reassign(
	c context.Context,
	guest repository.Cart,
	userID uuid.UUID,
) (response.Cart, bool, error) {
	rows, err := s.queries.UpdateCartOwner(c, repository.UpdateCartOwnerParams{
		ID:      guest.ID,
		UserID:  userID,
		Version: guest.Version,
	})
	if err != nil || rows == 0 {
		return response.Cart{}, false, err
	}
	guest.UserID = repository.UUID(&userID)
	res, err := guest.Response()
	if err != nil {
		return response.Cart{}, false, err
	}
	res.Version = guest.Version + 1
	res.UpdatedAt = time.Now()
	return res, true, nil
}

func (s *CartService) mergeInto(
	c context.Context,
	user repository.Cart,
	guest repository.Cart,
	userID uuid.UUID,
) (response.Cart, bool, error) {
	userCart, err := user.Response()
	if err != nil {
		return response.Cart{}, false, err
	}
	guestCart, err := guest.Response()
	if err != nil {
		return response.Cart{}, false, err
	}

	items, touched, err := item.Merge(userCart.Items, guestCart.Items)
	if err != nil {
		return response.Cart{}, false, err
	}
	items = s.repricer.Reprice(c, userID, items, touched)

	err = s.inTx(c, func(queries CartRepository) error {
		rows, err := queries.DeleteCartByIdAndVersion(c, repository.DeleteCartByIdAndVersionParams{
			ID:      guest.ID,
			Version: guest.Version,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return errStaleMerge
		}
		ok, err := s.write(c, queries, user, items)
		if err != nil {
			return err
		}
		if !ok {
			return errStaleMerge
		}
		return nil
	})
	if errors.Is(err, errStaleMerge) {
		return response.Cart{}, false, nil
	}
	if err != nil {
		return response.Cart{}, false, err
	}

	res, err := written(user, items)
	return res, err == nil, err
}
