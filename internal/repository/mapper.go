package repository

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	cartResponse "github.com/Alturino/pricing/cart/pkg/response"
	pricingResponse "github.com/Alturino/pricing/pricing/pkg/response"
)

func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		NaN:              false,
		Valid:            true,
	}
}

func NullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return Numeric(d.Decimal)
}

func Decimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func NullDecimal(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp))
}

func Text(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func UUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func uuidPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func (p Product) Response() pricingResponse.Product {
	return pricingResponse.Product{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.Sku,
		Category:    p.Category,
		Subcategory: textPtr(p.Subcategory),
		PriceEur:    Decimal(p.PriceEur),
		CostEur:     Decimal(p.CostEur),
	}
}

func (r PricingSchemaRule) Response() pricingResponse.Rule {
	return pricingResponse.Rule{
		ID:                 r.ID,
		SchemaID:           r.SchemaID,
		Type:               pricingResponse.RuleType(r.Type),
		Category:           textPtr(r.Category),
		Subcategory:        textPtr(r.Subcategory),
		ProductID:          uuidPtr(r.ProductID),
		DiscountPercentage: NullDecimal(r.DiscountPercentage),
		FixedPriceEur:      NullDecimal(r.FixedPriceEur),
	}
}

// CustomerSchemas groups rules under their assigned schema, preserving the
// row order of assignments.
func CustomerSchemas(
	assignments []FindCustomerPricingSchemasRow,
	rules []PricingSchemaRule,
) []pricingResponse.CustomerSchema {
	bySchema := make(map[uuid.UUID][]pricingResponse.Rule, len(assignments))
	for _, rule := range rules {
		bySchema[rule.SchemaID] = append(bySchema[rule.SchemaID], rule.Response())
	}
	schemas := make([]pricingResponse.CustomerSchema, 0, len(assignments))
	for _, a := range assignments {
		schemaRules := bySchema[a.SchemaID]
		if schemaRules == nil {
			schemaRules = []pricingResponse.Rule{}
		}
		schemas = append(schemas, pricingResponse.CustomerSchema{
			Priority:   a.Priority,
			AssignedAt: a.AssignedAt.Time,
			Schema: pricingResponse.Schema{
				ID:    a.SchemaID,
				Name:  a.SchemaName,
				Rules: schemaRules,
			},
		})
	}
	return schemas
}

func (c Cart) Response() (cartResponse.Cart, error) {
	items := []cartResponse.CartItem{}
	if len(c.Items) > 0 {
		if err := json.Unmarshal(c.Items, &items); err != nil {
			return cartResponse.Cart{}, err
		}
	}
	return cartResponse.Cart{
		ID:        c.ID,
		UserID:    uuidPtr(c.UserID),
		Items:     items,
		Version:   c.Version,
		CreatedAt: c.CreatedAt.Time,
		UpdatedAt: c.UpdatedAt.Time,
	}, nil
}

func CartItems(items []cartResponse.CartItem) ([]byte, error) {
	if items == nil {
		items = []cartResponse.CartItem{}
	}
	return json.Marshal(items)
}
