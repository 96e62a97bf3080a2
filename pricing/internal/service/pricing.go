package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/internal/log"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/repository"
	"github.com/Alturino/pricing/pricing/internal/cache"
	"github.com/Alturino/pricing/pricing/internal/margin"
	"github.com/Alturino/pricing/pricing/internal/otel"
	"github.com/Alturino/pricing/pricing/internal/resolver"
	"github.com/Alturino/pricing/pricing/pkg/request"
	"github.com/Alturino/pricing/pricing/pkg/response"
)

type PricingRepository interface {
	FindProductById(c context.Context, id uuid.UUID) (repository.Product, error)
	FindProductsByIds(c context.Context, ids []uuid.UUID) ([]repository.Product, error)
	FindProductsByCategory(c context.Context, category string) ([]repository.Product, error)
	FindProductsBySubcategory(c context.Context, subcategory string) ([]repository.Product, error)
	FindProducts(c context.Context) ([]repository.Product, error)
	FindCustomerPricingSchemas(
		c context.Context,
		customerID uuid.UUID,
	) ([]repository.FindCustomerPricingSchemasRow, error)
	FindPricingSchemaRulesBySchemaIds(
		c context.Context,
		schemaIds []uuid.UUID,
	) ([]repository.PricingSchemaRule, error)
}

type PricingService struct {
	queries   PricingRepository
	cache     *redis.Client
	validator margin.Validator
	cacheTTL  time.Duration
}

// NewPricingService builds the service. cache may be nil, in which case
// customer pricing data is always read from the database.
func NewPricingService(
	queries PricingRepository,
	cache *redis.Client,
	validator margin.Validator,
	cacheTTL time.Duration,
) *PricingService {
	return &PricingService{queries: queries, cache: cache, validator: validator, cacheTTL: cacheTTL}
}

func (s *PricingService) GetCustomerPricingData(
	c context.Context,
	customerID uuid.UUID,
) ([]response.CustomerSchema, error) {
	c, span := otel.Tracer.Start(c, "PricingService GetCustomerPricingData")
	defer span.End()

	cacheKey := fmt.Sprintf(cache.KEY_CUSTOMER_PRICING, customerID.String())
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingService GetCustomerPricingData").
		Str(log.KeyCustomerID, customerID.String()).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	if s.cache != nil {
		logger = logger.With().Str(log.KeyProcess, "finding pricing data in cache").Logger()
		logger.Trace().Msg("finding pricing data in cache")
		jsonCache, err := s.cache.Get(c, cacheKey).Result()
		if err == nil {
			schemas := []response.CustomerSchema{}
			if err = json.Unmarshal([]byte(jsonCache), &schemas); err == nil {
				logger.Info().Int(log.KeySchemaCount, len(schemas)).Msg("found pricing data in cache")
				return schemas, nil
			}
			err = fmt.Errorf("failed unmarshaling pricing data cache with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			logger.Trace().Err(err).Msg("pricing data not found in cache")
		}
	}

	logger = logger.With().Str(log.KeyProcess, "finding assigned schemas in db").Logger()
	logger.Trace().Msg("finding assigned schemas in db")
	assignments, err := s.queries.FindCustomerPricingSchemas(c, customerID)
	if err != nil {
		err = fmt.Errorf("failed finding assigned schemas with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger = logger.With().Int(log.KeySchemaCount, len(assignments)).Logger()
	logger.Trace().Msg("found assigned schemas in db")

	rules := []repository.PricingSchemaRule{}
	if len(assignments) > 0 {
		schemaIds := make([]uuid.UUID, len(assignments))
		for i, a := range assignments {
			schemaIds[i] = a.SchemaID
		}

		logger = logger.With().Str(log.KeyProcess, "finding schema rules in db").Logger()
		logger.Trace().Msg("finding schema rules in db")
		rules, err = s.queries.FindPricingSchemaRulesBySchemaIds(c, schemaIds)
		if err != nil {
			err = fmt.Errorf("failed finding schema rules with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Trace().Msg("found schema rules in db")
	}

	schemas := repository.CustomerSchemas(assignments, rules)
	resolver.SortByPriority(schemas)

	if s.cache != nil {
		logger = logger.With().Str(log.KeyProcess, "inserting pricing data to cache").Logger()
		jsonCache, err := json.Marshal(schemas)
		if err == nil {
			err = s.cache.Set(c, cacheKey, jsonCache, s.cacheTTL).Err()
		}
		if err != nil {
			err = fmt.Errorf("failed inserting pricing data to cache with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			logger.Trace().Msg("inserted pricing data to cache")
		}
	}

	logger.Info().Msg("found customer pricing data")
	return schemas, nil
}

// pricingDataFailOpen loads pricing data for customerID and degrades to no
// schemas when it cannot, so a pricing data gap never blocks a purchase.
func (s *PricingService) pricingDataFailOpen(
	c context.Context,
	customerID *uuid.UUID,
) []response.CustomerSchema {
	if customerID == nil || *customerID == uuid.Nil {
		return nil
	}
	schemas, err := s.GetCustomerPricingData(c, *customerID)
	if err != nil {
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(log.KeyTag, "PricingService pricingDataFailOpen").
			Str(log.KeyCustomerID, customerID.String()).
			Msg("failed loading pricing data, falling back to list price")
		return nil
	}
	return schemas
}

func (s *PricingService) GetEffectivePrice(
	c context.Context,
	productID uuid.UUID,
	customerID *uuid.UUID,
) (response.EffectivePrice, error) {
	c, span := otel.Tracer.Start(c, "PricingService GetEffectivePrice")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingService GetEffectivePrice").
		Str(log.KeyProductID, productID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Trace().Msg("finding product")
	product, err := s.queries.FindProductById(c, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			err = inErrors.ErrProductNotFound
		}
		err = fmt.Errorf("failed finding productId=%s with error=%w", productID.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	logger.Trace().Msg("found product")

	c = logger.WithContext(c)
	schemas := s.pricingDataFailOpen(c, customerID)

	price := resolver.Resolve(product.Response(), schemas)
	otel.ResolvedPrices.Add(c, 1, metric.WithAttributes(attribute.Bool("discounted", price.IsDiscounted)))
	logger.Info().Any(log.KeyEffectivePrice, price).Msg("resolved effective price")

	return price, nil
}

// GetEffectivePrices loads the customer's pricing data once and resolves
// every requested product against it. Unknown products are skipped.
func (s *PricingService) GetEffectivePrices(
	c context.Context,
	param request.EffectivePrices,
) ([]response.EffectivePrice, error) {
	c, span := otel.Tracer.Start(c, "PricingService GetEffectivePrices")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingService GetEffectivePrices").
		Int(log.KeyProductCount, len(param.ProductIDs)).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding products").Logger()
	logger.Trace().Msg("finding products")
	products, err := s.queries.FindProductsByIds(c, param.ProductIDs)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("found products")

	c = logger.WithContext(c)
	schemas := s.pricingDataFailOpen(c, param.CustomerID)

	prices := make([]response.EffectivePrice, 0, len(products))
	for _, product := range products {
		price := resolver.Resolve(product.Response(), schemas)
		otel.ResolvedPrices.Add(c, 1, metric.WithAttributes(attribute.Bool("discounted", price.IsDiscounted)))
		prices = append(prices, price)
	}
	logger.Info().Msg("resolved effective prices")

	return prices, nil
}

func (s *PricingService) affectedProducts(
	c context.Context,
	rule response.Rule,
) ([]repository.Product, error) {
	switch rule.Type {
	case response.RuleProductFixedPrice:
		if rule.ProductID == nil {
			return []repository.Product{}, nil
		}
		product, err := s.queries.FindProductById(c, *rule.ProductID)
		if repository.IsNotFound(err) {
			return []repository.Product{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []repository.Product{product}, nil
	case response.RuleSubcategoryDiscount:
		if rule.Subcategory == nil {
			return []repository.Product{}, nil
		}
		return s.queries.FindProductsBySubcategory(c, *rule.Subcategory)
	case response.RuleCategoryDiscount:
		if rule.Category == nil {
			return []repository.Product{}, nil
		}
		return s.queries.FindProductsByCategory(c, *rule.Category)
	case response.RuleGlobalDiscount:
		return s.queries.FindProducts(c)
	}
	return nil, inErrors.ErrInvalidRuleType
}

func (s *PricingService) ValidatePricingRule(
	c context.Context,
	param request.PricingRule,
) (response.RuleValidation, error) {
	c, span := otel.Tracer.Start(c, "PricingService ValidatePricingRule")
	defer span.End()

	rule := param.Rule()
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingService ValidatePricingRule").
		Any(log.KeyRule, rule).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding affected products").Logger()
	logger.Trace().Msg("finding affected products")
	rows, err := s.affectedProducts(c, rule)
	if err != nil {
		err = fmt.Errorf("failed finding affected products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.RuleValidation{}, err
	}
	products := make([]response.Product, len(rows))
	for i, row := range rows {
		products[i] = row.Response()
	}
	logger = logger.With().Int(log.KeyProductCount, len(products)).Logger()
	logger.Trace().Msg("found affected products")

	logger = logger.With().Str(log.KeyProcess, "validating margin").Logger()
	result := s.validator.Validate(rule, products)
	if !result.Valid {
		otel.RejectedRules.Add(c, 1, metric.WithAttributes(attribute.String("type", string(rule.Type))))
	}
	logger.Info().Any(log.KeyRuleValidation, result).Msg("validated margin")

	return result, nil
}
