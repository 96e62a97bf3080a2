package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, sku, category, subcategory, price_eur, cost_eur, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Sku,
		&i.Category,
		&i.Subcategory,
		&i.PriceEur,
		&i.CostEur,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryProducts(c context.Context, sql string, args ...interface{}) ([]Product, error) {
	rows, err := q.db.Query(c, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findProductById = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(c, findProductById, id))
}

const findProductsByIds = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[]) ORDER BY id`

func (q *Queries) FindProductsByIds(c context.Context, ids []uuid.UUID) ([]Product, error) {
	return q.queryProducts(c, findProductsByIds, ids)
}

const findProductsByCategory = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY id`

func (q *Queries) FindProductsByCategory(c context.Context, category string) ([]Product, error) {
	return q.queryProducts(c, findProductsByCategory, category)
}

const findProductsBySubcategory = `SELECT ` + productColumns + ` FROM products WHERE subcategory = $1 ORDER BY id`

func (q *Queries) FindProductsBySubcategory(c context.Context, subcategory string) ([]Product, error) {
	return q.queryProducts(c, findProductsBySubcategory, subcategory)
}

const findProducts = `SELECT ` + productColumns + ` FROM products ORDER BY id`

func (q *Queries) FindProducts(c context.Context) ([]Product, error) {
	return q.queryProducts(c, findProducts)
}

const insertProduct = `INSERT INTO products (id, name, sku, category, subcategory, price_eur, cost_eur)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns

type InsertProductParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Sku         string         `json:"sku"`
	Category    string         `json:"category"`
	Subcategory pgtype.Text    `json:"subcategory"`
	PriceEur    pgtype.Numeric `json:"price_eur"`
	CostEur     pgtype.Numeric `json:"cost_eur"`
}

func (q *Queries) InsertProduct(c context.Context, arg InsertProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(c, insertProduct,
		arg.ID,
		arg.Name,
		arg.Sku,
		arg.Category,
		arg.Subcategory,
		arg.PriceEur,
		arg.CostEur,
	))
}
