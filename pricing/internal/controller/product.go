package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/pricing/internal/http"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/middleware"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/validate"
	"github.com/Alturino/pricing/pricing/internal/otel"
	"github.com/Alturino/pricing/pricing/internal/service"
	"github.com/Alturino/pricing/pricing/pkg/request"
)

type ProductController struct {
	service *service.ProductService
}

func AttachProductController(router *mux.Router, service *service.ProductService, secretKey string) {
	controller := ProductController{service: service}

	products := router.PathPrefix("/products").Subrouter()
	products.HandleFunc("", controller.GetProducts).Methods(http.MethodGet)
	products.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)

	admin := router.PathPrefix("/products").Methods(http.MethodPost).Subrouter()
	admin.Use(middleware.Auth(secretKey, true))
	admin.HandleFunc("", controller.InsertProduct)
}

func (p ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController InsertProduct").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	reqBody := request.Product{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "inserting product").Logger()
	c = logger.WithContext(c)
	product, err := p.service.InsertProduct(c, reqBody)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Str(log.KeyProductID, product.ID.String()).Msg("inserted product")

	inHttp.WriteSuccess(c, w, "product inserted", map[string]interface{}{"product": product})
}

func (p ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProducts")
	defer span.End()

	filter := request.ProductFilter{
		Category:    r.URL.Query().Get("category"),
		Subcategory: r.URL.Query().Get("subcategory"),
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController GetProducts").
		Str(log.KeyProcess, "finding products").
		Logger()

	c = logger.WithContext(c)
	products, err := p.service.GetProducts(c, filter)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Int(log.KeyProductCount, len(products)).Msg("found products")

	inHttp.WriteSuccess(c, w, "products found", map[string]interface{}{"products": products})
}

func (p ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProductById").
		Any(log.KeyPathValues, pathValues).
		Str(log.KeyProcess, "validating productId").
		Logger()

	productID, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId=%s with error=%w", pathValues["productId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	c = logger.WithContext(c)
	product, err := p.service.FindProductById(c, productID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteSuccess(c, w, "product found", map[string]interface{}{"product": product})
}
