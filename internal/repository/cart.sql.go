package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const cartColumns = `id, user_id, items, version, created_at, updated_at`

func scanCart(row pgx.Row) (Cart, error) {
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Items,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartById = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`

func (q *Queries) FindCartById(c context.Context, id uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(c, findCartById, id))
}

const findCartByUserId = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

func (q *Queries) FindCartByUserId(c context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(c, findCartByUserId, userID))
}

const insertCart = `INSERT INTO carts (id, user_id, items) VALUES ($1, $2, $3) RETURNING ` + cartColumns

type InsertCartParams struct {
	ID     uuid.UUID   `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
	Items  []byte      `json:"items"`
}

func (q *Queries) InsertCart(c context.Context, arg InsertCartParams) (Cart, error) {
	return scanCart(q.db.QueryRow(c, insertCart, arg.ID, arg.UserID, arg.Items))
}

const updateCartItems = `UPDATE carts
SET items = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $3`

type UpdateCartItemsParams struct {
	ID      uuid.UUID `json:"id"`
	Items   []byte    `json:"items"`
	Version int64     `json:"version"`
}

// UpdateCartItems writes the items only when the stored version still
// equals arg.Version. Zero affected rows means the cart changed or vanished.
func (q *Queries) UpdateCartItems(c context.Context, arg UpdateCartItemsParams) (int64, error) {
	result, err := q.db.Exec(c, updateCartItems, arg.ID, arg.Items, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const overwriteCartItems = `UPDATE carts
SET items = $2, version = version + 1, updated_at = now()
WHERE id = $1`

type OverwriteCartItemsParams struct {
	ID    uuid.UUID `json:"id"`
	Items []byte    `json:"items"`
}

func (q *Queries) OverwriteCartItems(c context.Context, arg OverwriteCartItemsParams) (int64, error) {
	result, err := q.db.Exec(c, overwriteCartItems, arg.ID, arg.Items)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateCartOwner = `UPDATE carts
SET user_id = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $3 AND user_id IS NULL`

type UpdateCartOwnerParams struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Version int64     `json:"version"`
}

func (q *Queries) UpdateCartOwner(c context.Context, arg UpdateCartOwnerParams) (int64, error) {
	result, err := q.db.Exec(c, updateCartOwner, arg.ID, arg.UserID, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteCartByIdAndVersion = `DELETE FROM carts WHERE id = $1 AND version = $2`

type DeleteCartByIdAndVersionParams struct {
	ID      uuid.UUID `json:"id"`
	Version int64     `json:"version"`
}

// DeleteCartByIdAndVersion deletes the cart only when it is unchanged since
// it was read at arg.Version.
func (q *Queries) DeleteCartByIdAndVersion(c context.Context, arg DeleteCartByIdAndVersionParams) (int64, error) {
	result, err := q.db.Exec(c, deleteCartByIdAndVersion, arg.ID, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
