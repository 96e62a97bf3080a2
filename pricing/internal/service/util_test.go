package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Alturino/pricing/internal/infra"
	"github.com/Alturino/pricing/internal/repository"
)

var errDatabaseDown = errors.New("database down")

type assignment struct {
	schema   repository.PricingSchema
	priority int32
	at       time.Time
}

// fakeRepository keeps catalog and pricing rows in memory.
type fakeRepository struct {
	products     []repository.Product
	assignments  map[uuid.UUID][]assignment
	rules        []repository.PricingSchemaRule
	pricingErr   error
	pricingCalls int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{assignments: map[uuid.UUID][]assignment{}}
}

func (f *fakeRepository) addProduct(name, category string, subcategory *string, price, cost string) repository.Product {
	product := repository.Product{
		ID:          uuid.New(),
		Name:        name,
		Sku:         "SKU-" + name,
		Category:    category,
		Subcategory: repository.Text(subcategory),
		PriceEur:    repository.Numeric(decimal.RequireFromString(price)),
		CostEur:     repository.Numeric(decimal.RequireFromString(cost)),
	}
	f.products = append(f.products, product)
	return product
}

func (f *fakeRepository) assign(customerID uuid.UUID, name string, priority int32, rules ...repository.PricingSchemaRule) {
	schema := repository.PricingSchema{ID: uuid.New(), Name: name}
	f.assignments[customerID] = append(
		f.assignments[customerID],
		assignment{schema: schema, priority: priority, at: time.Now()},
	)
	for _, rule := range rules {
		rule.ID = uuid.New()
		rule.SchemaID = schema.ID
		f.rules = append(f.rules, rule)
	}
}

func (f *fakeRepository) FindProductById(_ context.Context, id uuid.UUID) (repository.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return repository.Product{}, pgx.ErrNoRows
}

func (f *fakeRepository) FindProductsByIds(_ context.Context, ids []uuid.UUID) ([]repository.Product, error) {
	products := []repository.Product{}
	for _, p := range f.products {
		if slices.Contains(ids, p.ID) {
			products = append(products, p)
		}
	}
	return products, nil
}

func (f *fakeRepository) FindProductsByCategory(_ context.Context, category string) ([]repository.Product, error) {
	products := []repository.Product{}
	for _, p := range f.products {
		if p.Category == category {
			products = append(products, p)
		}
	}
	return products, nil
}

func (f *fakeRepository) FindProductsBySubcategory(_ context.Context, subcategory string) ([]repository.Product, error) {
	products := []repository.Product{}
	for _, p := range f.products {
		if p.Subcategory.Valid && p.Subcategory.String == subcategory {
			products = append(products, p)
		}
	}
	return products, nil
}

func (f *fakeRepository) FindProducts(_ context.Context) ([]repository.Product, error) {
	return slices.Clone(f.products), nil
}

func (f *fakeRepository) InsertProduct(_ context.Context, arg repository.InsertProductParams) (repository.Product, error) {
	for _, p := range f.products {
		if p.Sku == arg.Sku {
			return repository.Product{}, &pgconn.PgError{Code: "23505"}
		}
	}
	product := repository.Product{
		ID:          arg.ID,
		Name:        arg.Name,
		Sku:         arg.Sku,
		Category:    arg.Category,
		Subcategory: arg.Subcategory,
		PriceEur:    arg.PriceEur,
		CostEur:     arg.CostEur,
	}
	f.products = append(f.products, product)
	return product, nil
}

func (f *fakeRepository) FindCustomerPricingSchemas(
	_ context.Context,
	customerID uuid.UUID,
) ([]repository.FindCustomerPricingSchemasRow, error) {
	f.pricingCalls++
	if f.pricingErr != nil {
		return nil, f.pricingErr
	}
	rows := []repository.FindCustomerPricingSchemasRow{}
	for _, a := range f.assignments[customerID] {
		rows = append(rows, repository.FindCustomerPricingSchemasRow{
			SchemaID:   a.schema.ID,
			SchemaName: a.schema.Name,
			Priority:   a.priority,
			AssignedAt: pgtype.Timestamptz{Time: a.at, Valid: true},
		})
	}
	return rows, nil
}

func (f *fakeRepository) FindPricingSchemaRulesBySchemaIds(
	_ context.Context,
	schemaIds []uuid.UUID,
) ([]repository.PricingSchemaRule, error) {
	rules := []repository.PricingSchemaRule{}
	for _, r := range f.rules {
		if slices.Contains(schemaIds, r.SchemaID) {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func percentRule(ruleType string, value string) repository.PricingSchemaRule {
	return repository.PricingSchemaRule{
		Type:               ruleType,
		DiscountPercentage: repository.Numeric(decimal.RequireFromString(value)),
	}
}

func ptr[T any](v T) *T {
	return &v
}

func setupRedis(t *testing.T, c context.Context) (*redis.Client, *testRedis.RedisContainer) {
	redisContainer, err := testRedis.Run(
		c,
		"redis:7.4.2-alpine3.21",
		testRedis.WithLogLevel(testRedis.LogLevelVerbose),
	)
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	redisClient, err := infra.NewRedis(c, redisOpt)
	if err != nil {
		t.Fatalf("failed connecting redis client with error: %s", err)
	}
	return redisClient, redisContainer
}

func teardownRedis(t *testing.T, client *redis.Client, container *testRedis.RedisContainer) {
	client.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}
