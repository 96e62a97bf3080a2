package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pricing/cart/pkg/response"
	"github.com/Alturino/pricing/internal/repository"
	pricingResponse "github.com/Alturino/pricing/pricing/pkg/response"
)

// fakeStore is an in-memory carts table with the same conditional write
// semantics as the Postgres queries. afterRead runs after every read has
// taken its snapshot, which lets tests stall a caller between read and write.
type fakeStore struct {
	mu        sync.Mutex
	carts     map[uuid.UUID]repository.Cart
	afterRead func(cart repository.Cart)
}

func newFakeStore() *fakeStore {
	return &fakeStore{carts: map[uuid.UUID]repository.Cart{}}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (f *fakeStore) read(find func(repository.Cart) bool) (repository.Cart, error) {
	f.mu.Lock()
	var (
		found repository.Cart
		ok    bool
	)
	for _, cart := range f.carts {
		if find(cart) {
			found, ok = cart, true
			break
		}
	}
	f.mu.Unlock()
	if !ok {
		return repository.Cart{}, pgx.ErrNoRows
	}
	if f.afterRead != nil {
		f.afterRead(found)
	}
	return found, nil
}

func (f *fakeStore) FindCartById(_ context.Context, id uuid.UUID) (repository.Cart, error) {
	return f.read(func(cart repository.Cart) bool { return cart.ID == id })
}

func (f *fakeStore) FindCartByUserId(_ context.Context, userID uuid.UUID) (repository.Cart, error) {
	return f.read(func(cart repository.Cart) bool {
		return cart.UserID.Valid && uuid.UUID(cart.UserID.Bytes) == userID
	})
}

func (f *fakeStore) userTaken(userID pgtype.UUID, except uuid.UUID) bool {
	if !userID.Valid {
		return false
	}
	for _, cart := range f.carts {
		if cart.ID != except && cart.UserID.Valid && cart.UserID.Bytes == userID.Bytes {
			return true
		}
	}
	return false
}

func (f *fakeStore) InsertCart(_ context.Context, arg repository.InsertCartParams) (repository.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[arg.ID]; ok || f.userTaken(arg.UserID, arg.ID) {
		return repository.Cart{}, uniqueViolation()
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	cart := repository.Cart{
		ID:        arg.ID,
		UserID:    arg.UserID,
		Items:     arg.Items,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.carts[arg.ID] = cart
	return cart, nil
}

func (f *fakeStore) UpdateCartItems(_ context.Context, arg repository.UpdateCartItemsParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[arg.ID]
	if !ok || cart.Version != arg.Version {
		return 0, nil
	}
	cart.Items = arg.Items
	cart.Version++
	f.carts[arg.ID] = cart
	return 1, nil
}

func (f *fakeStore) OverwriteCartItems(_ context.Context, arg repository.OverwriteCartItemsParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[arg.ID]
	if !ok {
		return 0, nil
	}
	cart.Items = arg.Items
	cart.Version++
	f.carts[arg.ID] = cart
	return 1, nil
}

func (f *fakeStore) UpdateCartOwner(_ context.Context, arg repository.UpdateCartOwnerParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[arg.ID]
	if !ok || cart.Version != arg.Version || cart.UserID.Valid {
		return 0, nil
	}
	owner := repository.UUID(&arg.UserID)
	if f.userTaken(owner, arg.ID) {
		return 0, uniqueViolation()
	}
	cart.UserID = owner
	cart.Version++
	f.carts[arg.ID] = cart
	return 1, nil
}

func (f *fakeStore) DeleteCartByIdAndVersion(
	_ context.Context,
	arg repository.DeleteCartByIdAndVersionParams,
) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[arg.ID]
	if !ok || cart.Version != arg.Version {
		return 0, nil
	}
	delete(f.carts, arg.ID)
	return 1, nil
}

// inTx runs fn against the store and puts every cart back when fn fails,
// the way a rolled back transaction would.
func (f *fakeStore) inTx(_ context.Context, fn func(CartRepository) error) error {
	f.mu.Lock()
	saved := maps.Clone(f.carts)
	f.mu.Unlock()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.carts = saved
		f.mu.Unlock()
		return err
	}
	return nil
}

// bump moves the stored version as if another writer had committed.
func (f *fakeStore) bump(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart := f.carts[id]
	cart.Version++
	f.carts[id] = cart
}

func (f *fakeStore) seed(id uuid.UUID, userID *uuid.UUID, items ...response.CartItem) {
	encoded, err := repository.CartItems(items)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[id] = repository.Cart{
		ID:      id,
		UserID:  repository.UUID(userID),
		Items:   encoded,
		Version: 1,
	}
}

func (f *fakeStore) items(id uuid.UUID) []response.CartItem {
	f.mu.Lock()
	cart, ok := f.carts[id]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	res, err := cart.Response()
	if err != nil {
		panic(err)
	}
	return res.Items
}

// fixedPriceClient answers every price request with price.
type fixedPriceClient struct {
	mu        sync.Mutex
	price     decimal.Decimal
	err       error
	customers []*uuid.UUID
}

func (f *fixedPriceClient) GetEffectivePrice(
	_ context.Context,
	productID uuid.UUID,
	customerID *uuid.UUID,
) (pricingResponse.EffectivePrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers = append(f.customers, customerID)
	if f.err != nil {
		return pricingResponse.EffectivePrice{}, f.err
	}
	return pricingResponse.EffectivePrice{
		ProductID:       productID,
		OriginalPrice:   f.price,
		DiscountedPrice: f.price,
	}, nil
}

func testContext() context.Context {
	logger := zerolog.Nop()
	return logger.WithContext(context.Background())
}
