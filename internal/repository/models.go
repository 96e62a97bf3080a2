package repository

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Sku         string             `json:"sku"`
	Category    string             `json:"category"`
	Subcategory pgtype.Text        `json:"subcategory"`
	PriceEur    pgtype.Numeric     `json:"price_eur"`
	CostEur     pgtype.Numeric     `json:"cost_eur"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type PricingSchema struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type PricingSchemaRule struct {
	ID                 uuid.UUID          `json:"id"`
	SchemaID           uuid.UUID          `json:"schema_id"`
	Type               string             `json:"type"`
	Category           pgtype.Text        `json:"category"`
	Subcategory        pgtype.Text        `json:"subcategory"`
	ProductID          pgtype.UUID        `json:"product_id"`
	DiscountPercentage pgtype.Numeric     `json:"discount_percentage"`
	FixedPriceEur      pgtype.Numeric     `json:"fixed_price_eur"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
}

type CustomerPricingSchema struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	SchemaID   uuid.UUID          `json:"schema_id"`
	Priority   int32              `json:"priority"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type Cart struct {
	ID        uuid.UUID          `json:"id"`
	UserID    pgtype.UUID        `json:"user_id"`
	Items     []byte             `json:"items"`
	Version   int64              `json:"version"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}
