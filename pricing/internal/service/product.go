package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/internal/log"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/repository"
	"github.com/Alturino/pricing/pricing/internal/otel"
	"github.com/Alturino/pricing/pricing/pkg/request"
	"github.com/Alturino/pricing/pricing/pkg/response"
)

type ProductRepository interface {
	FindProductById(c context.Context, id uuid.UUID) (repository.Product, error)
	FindProductsByCategory(c context.Context, category string) ([]repository.Product, error)
	FindProductsBySubcategory(c context.Context, subcategory string) ([]repository.Product, error)
	FindProducts(c context.Context) ([]repository.Product, error)
	InsertProduct(c context.Context, arg repository.InsertProductParams) (repository.Product, error)
}

// ProductService is the catalog the resolver and margin validator price
// against. Products are never cached so list price and cost changes apply
// to the next resolution.
type ProductService struct {
	queries ProductRepository
}

func NewProductService(queries ProductRepository) *ProductService {
	return &ProductService{queries: queries}
}

func (s *ProductService) InsertProduct(c context.Context, param request.Product) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Str(log.KeyProcess, "inserting product to db").
		Any(log.KeyRequestBody, param).
		Logger()

	logger.Trace().Msg("inserting product to db")
	product, err := s.queries.InsertProduct(c, repository.InsertProductParams{
		ID:          uuid.New(),
		Name:        param.Name,
		Sku:         param.SKU,
		Category:    param.Category,
		Subcategory: repository.Text(param.Subcategory),
		PriceEur:    repository.Numeric(param.PriceEur),
		CostEur:     repository.Numeric(param.CostEur),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			err = inErrors.ErrDuplicateSku
		}
		err = fmt.Errorf("failed inserting product sku=%s with error=%w", param.SKU, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Str(log.KeyProductID, product.ID.String()).Msg("inserted product to db")

	return product.Response(), nil
}

func (s *ProductService) FindProductById(c context.Context, id uuid.UUID) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Str(log.KeyProductID, id.String()).
		Str(log.KeyProcess, "finding product in db").
		Logger()

	product, err := s.queries.FindProductById(c, id)
	if err != nil {
		if repository.IsNotFound(err) {
			err = inErrors.ErrProductNotFound
		}
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("found product in db")

	return product.Response(), nil
}

func (s *ProductService) GetProducts(c context.Context, filter request.ProductFilter) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService GetProducts").
		Any("filter", filter).
		Str(log.KeyProcess, "finding products in db").
		Logger()

	var (
		products []repository.Product
		err      error
	)
	switch {
	case filter.Subcategory != "":
		products, err = s.queries.FindProductsBySubcategory(c, filter.Subcategory)
	case filter.Category != "":
		products, err = s.queries.FindProductsByCategory(c, filter.Category)
	default:
		products, err = s.queries.FindProducts(c)
	}
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyProductCount, len(products)).Msg("found products in db")

	res := make([]response.Product, len(products))
	for i, p := range products {
		res[i] = p.Response()
	}
	return res, nil
}
