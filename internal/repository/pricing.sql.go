package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const findCustomerPricingSchemas = `SELECT cps.schema_id, ps.name, cps.priority, cps.created_at
FROM customer_pricing_schemas cps
JOIN pricing_schemas ps ON ps.id = cps.schema_id
WHERE cps.customer_id = $1
ORDER BY cps.priority DESC, cps.created_at ASC, cps.schema_id ASC`

type FindCustomerPricingSchemasRow struct {
	SchemaID   uuid.UUID          `json:"schema_id"`
	SchemaName string             `json:"schema_name"`
	Priority   int32              `json:"priority"`
	AssignedAt pgtype.Timestamptz `json:"assigned_at"`
}

func (q *Queries) FindCustomerPricingSchemas(
	c context.Context,
	customerID uuid.UUID,
) ([]FindCustomerPricingSchemasRow, error) {
	rows, err := q.db.Query(c, findCustomerPricingSchemas, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []FindCustomerPricingSchemasRow{}
	for rows.Next() {
		var i FindCustomerPricingSchemasRow
		if err := rows.Scan(&i.SchemaID, &i.SchemaName, &i.Priority, &i.AssignedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findPricingSchemaRulesBySchemaIds = `SELECT id, schema_id, type, category, subcategory, product_id, discount_percentage, fixed_price_eur, created_at
FROM pricing_schema_rules
WHERE schema_id = ANY($1::uuid[])
ORDER BY schema_id, created_at, id`

func (q *Queries) FindPricingSchemaRulesBySchemaIds(
	c context.Context,
	schemaIds []uuid.UUID,
) ([]PricingSchemaRule, error) {
	rows, err := q.db.Query(c, findPricingSchemaRulesBySchemaIds, schemaIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PricingSchemaRule{}
	for rows.Next() {
		var i PricingSchemaRule
		if err := rows.Scan(
			&i.ID,
			&i.SchemaID,
			&i.Type,
			&i.Category,
			&i.Subcategory,
			&i.ProductID,
			&i.DiscountPercentage,
			&i.FixedPriceEur,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertPricingSchema = `INSERT INTO pricing_schemas (id, name) VALUES ($1, $2) RETURNING id, name, created_at`

type InsertPricingSchemaParams struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (q *Queries) InsertPricingSchema(
	c context.Context,
	arg InsertPricingSchemaParams,
) (PricingSchema, error) {
	var i PricingSchema
	err := q.db.QueryRow(c, insertPricingSchema, arg.ID, arg.Name).
		Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const insertPricingSchemaRule = `INSERT INTO pricing_schema_rules (id, schema_id, type, category, subcategory, product_id, discount_percentage, fixed_price_eur)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type InsertPricingSchemaRuleParams struct {
	ID                 uuid.UUID      `json:"id"`
	SchemaID           uuid.UUID      `json:"schema_id"`
	Type               string         `json:"type"`
	Category           pgtype.Text    `json:"category"`
	Subcategory        pgtype.Text    `json:"subcategory"`
	ProductID          pgtype.UUID    `json:"product_id"`
	DiscountPercentage pgtype.Numeric `json:"discount_percentage"`
	FixedPriceEur      pgtype.Numeric `json:"fixed_price_eur"`
}

func (q *Queries) InsertPricingSchemaRule(
	c context.Context,
	arg InsertPricingSchemaRuleParams,
) error {
	_, err := q.db.Exec(c, insertPricingSchemaRule,
		arg.ID,
		arg.SchemaID,
		arg.Type,
		arg.Category,
		arg.Subcategory,
		arg.ProductID,
		arg.DiscountPercentage,
		arg.FixedPriceEur,
	)
	return err
}

const insertCustomerPricingSchema = `INSERT INTO customer_pricing_schemas (customer_id, schema_id, priority)
VALUES ($1, $2, $3)
RETURNING customer_id, schema_id, priority, created_at`

type InsertCustomerPricingSchemaParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	SchemaID   uuid.UUID `json:"schema_id"`
	Priority   int32     `json:"priority"`
}

func (q *Queries) InsertCustomerPricingSchema(
	c context.Context,
	arg InsertCustomerPricingSchemaParams,
) (CustomerPricingSchema, error) {
	var i CustomerPricingSchema
	err := q.db.QueryRow(c, insertCustomerPricingSchema, arg.CustomerID, arg.SchemaID, arg.Priority).
		Scan(&i.CustomerID, &i.SchemaID, &i.Priority, &i.CreatedAt)
	return i, err
}
