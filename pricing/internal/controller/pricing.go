package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pricing/internal"
	inErrors "github.com/Alturino/pricing/internal/errors"
	inHttp "github.com/Alturino/pricing/internal/http"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/middleware"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/validate"
	"github.com/Alturino/pricing/pricing/internal/otel"
	"github.com/Alturino/pricing/pricing/internal/service"
	"github.com/Alturino/pricing/pricing/pkg/request"
)

type PricingController struct {
	service *service.PricingService
}

func AttachPricingController(router *mux.Router, service *service.PricingService, secretKey string) {
	controller := PricingController{service: service}

	prices := router.PathPrefix("/prices").Subrouter()
	prices.Use(middleware.Auth(secretKey, false))
	prices.HandleFunc("", controller.GetEffectivePrices).Methods(http.MethodPost)
	prices.HandleFunc("/{productId}", controller.GetEffectivePrice).Methods(http.MethodGet)

	customers := router.PathPrefix("/customers").Subrouter()
	customers.HandleFunc("/{customerId}/pricing", controller.GetCustomerPricingData).
		Methods(http.MethodGet)

	rules := router.PathPrefix("/pricing-rules").Subrouter()
	rules.Use(middleware.Auth(secretKey, true))
	rules.HandleFunc("/validate", controller.ValidatePricingRule).Methods(http.MethodPost)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrInvalidRuleType):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrDuplicateSku):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// customerID prefers the customerId query parameter and falls back to the
// authenticated user. Anonymous callers get nil.
func customerID(r *http.Request) (*uuid.UUID, error) {
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed parsing customerId=%s with error=%w", raw, err)
		}
		return &id, nil
	}
	if _, ok := internal.JwtTokenFromContext(r.Context()); !ok {
		return nil, nil
	}
	id, err := internal.UserIdFromJwtToken(r.Context())
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (p PricingController) GetEffectivePrice(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "PricingController GetEffectivePrice")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingController GetEffectivePrice").
		Any(log.KeyPathValues, pathValues).
		Str(log.KeyProcess, "validating productId").
		Logger()

	logger.Trace().Msg("validating productId")
	productID, err := uuid.Parse(pathValues["productId"])
	if err != nil {
		err = fmt.Errorf("failed validating productId=%s with error=%w", pathValues["productId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, productID.String()).Logger()
	logger.Trace().Msg("validated productId")

	logger = logger.With().Str(log.KeyProcess, "getting customerId").Logger()
	customer, err := customerID(r.WithContext(logger.WithContext(c)))
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	if customer != nil {
		logger = logger.With().Str(log.KeyCustomerID, customer.String()).Logger()
	}

	logger = logger.With().Str(log.KeyProcess, "resolving effective price").Logger()
	logger.Trace().Msg("resolving effective price")
	c = logger.WithContext(c)
	price, err := p.service.GetEffectivePrice(c, productID, customer)
	if err != nil {
		err = fmt.Errorf("failed resolving effective price with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("resolved effective price")

	inHttp.WriteSuccess(c, w, "effective price resolved", map[string]interface{}{"price": price})
}

func (p PricingController) GetEffectivePrices(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "PricingController GetEffectivePrices")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingController GetEffectivePrices").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	logger.Trace().Msg("decoding request body")
	reqBody := request.EffectivePrices{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Any(log.KeyRequestBody, reqBody).Logger()
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	if reqBody.CustomerID == nil {
		customer, err := customerID(r.WithContext(logger.WithContext(c)))
		if err != nil {
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
			return
		}
		reqBody.CustomerID = customer
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "resolving effective prices").Logger()
	c = logger.WithContext(c)
	prices, err := p.service.GetEffectivePrices(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed resolving effective prices with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("resolved effective prices")

	inHttp.WriteSuccess(c, w, "effective prices resolved", map[string]interface{}{"prices": prices})
}

func (p PricingController) GetCustomerPricingData(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "PricingController GetCustomerPricingData")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingController GetCustomerPricingData").
		Any(log.KeyPathValues, pathValues).
		Str(log.KeyProcess, "validating customerId").
		Logger()

	customer, err := uuid.Parse(pathValues["customerId"])
	if err != nil {
		err = fmt.Errorf("failed validating customerId=%s with error=%w", pathValues["customerId"], err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyCustomerID, customer.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding customer pricing data").Logger()
	c = logger.WithContext(c)
	schemas, err := p.service.GetCustomerPricingData(c, customer)
	if err != nil {
		err = fmt.Errorf("failed finding customer pricing data with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("found customer pricing data")

	inHttp.WriteSuccess(c, w, "customer pricing data found", map[string]interface{}{"schemas": schemas})
}

func (p PricingController) ValidatePricingRule(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "PricingController ValidatePricingRule")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingController ValidatePricingRule").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	logger.Trace().Msg("decoding request body")
	reqBody := request.PricingRule{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Any(log.KeyRequestBody, reqBody).Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "validating pricing rule").Logger()
	c = logger.WithContext(c)
	result, err := p.service.ValidatePricingRule(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed validating pricing rule with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Bool("valid", result.Valid).Msg("validated pricing rule")

	inHttp.WriteSuccess(c, w, "pricing rule validated", map[string]interface{}{"validation": result})
}
