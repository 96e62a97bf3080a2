package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/pricing/cart/internal/otel"
	"github.com/Alturino/pricing/cart/internal/service"
	"github.com/Alturino/pricing/cart/pkg/request"
	"github.com/Alturino/pricing/cart/pkg/response"
	"github.com/Alturino/pricing/internal"
	inErrors "github.com/Alturino/pricing/internal/errors"
	inHttp "github.com/Alturino/pricing/internal/http"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/middleware"
	inOtel "github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/internal/validate"
)

type CartController struct {
	service *service.CartService
}

func AttachCartController(router *mux.Router, service *service.CartService, secretKey string) {
	controller := CartController{service: service}

	// Guests are addressed by the X-Cart-Id header, so the token is optional
	// everywhere except merge, which rejects anonymous callers itself.
	carts := router.PathPrefix("/carts").Subrouter()
	carts.Use(middleware.Auth(secretKey, false))
	carts.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	carts.HandleFunc("", controller.CreateCart).Methods(http.MethodPost)
	carts.HandleFunc("/merge", controller.MergeGuestCart).Methods(http.MethodPost)
	carts.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	carts.HandleFunc("/items", controller.ClearCart).Methods(http.MethodDelete)
	carts.HandleFunc("/items/{key}", controller.UpdateItem).Methods(http.MethodPatch)
	carts.HandleFunc("/items/{key}", controller.RemoveItem).Methods(http.MethodDelete)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrCartNotFound), errors.Is(err, inErrors.ErrCartItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrCartConflict):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrInvalidCartLookup),
		errors.Is(err, inErrors.ErrInvalidQuantity),
		errors.Is(err, inErrors.ErrMissingPrice),
		errors.Is(err, inErrors.ErrCartNotGuest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(
	c context.Context,
	w http.ResponseWriter,
	span trace.Span,
	logger zerolog.Logger,
	code int,
	err error,
) {
	inOtel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	inHttp.WriteFailed(c, w, code, err)
}

// lookup addresses the caller's cart: the token subject for users, the
// X-Cart-Id header for guests. With fresh set a guest without a header gets
// a new cart id, echoed back in the response header.
func lookup(c context.Context, w http.ResponseWriter, r *http.Request, fresh bool) (request.Lookup, error) {
	if _, ok := internal.JwtTokenFromContext(c); ok {
		userID, err := internal.UserIdFromJwtToken(c)
		if err != nil {
			return request.Lookup{}, err
		}
		return request.Lookup{UserID: userID}, nil
	}

	raw := r.Header.Get(inHttp.KEY_HEADER_CART_ID)
	if raw == "" {
		if !fresh {
			return request.Lookup{}, inErrors.ErrInvalidCartLookup
		}
		cartID := uuid.New()
		w.Header().Set(inHttp.KEY_HEADER_CART_ID, cartID.String())
		return request.Lookup{CartID: cartID}, nil
	}
	cartID, err := uuid.Parse(raw)
	if err != nil {
		return request.Lookup{}, fmt.Errorf("failed parsing %s=%s with error=%w", inHttp.KEY_HEADER_CART_ID, raw, err)
	}
	return request.Lookup{CartID: cartID}, nil
}

func itemKey(raw string) request.ItemKey {
	if id, err := uuid.Parse(raw); err == nil {
		return request.ItemKey{ProductID: id}
	}
	return request.ItemKey{SKU: raw}
}

func writeCart(c context.Context, w http.ResponseWriter, message string, cart response.Cart) {
	inHttp.WriteSuccess(c, w, message, map[string]interface{}{
		"cart":  cart,
		"total": cart.Total(),
	})
}

func (t CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController GetCart").
		Str(log.KeyProcess, "resolving cart lookup").
		Logger()

	lk, err := lookup(c, w, r, false)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.GetCart(c, lk)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("found cart")

	writeCart(c, w, "cart found", cart)
}

func (t CartController) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController CreateCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController CreateCart").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	reqBody := request.CreateCart{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "resolving cart lookup").Logger()
	lk, err := lookup(c, w, r, true)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "creating cart").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.CreateCart(c, lk, reqBody)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("created cart")

	writeCart(c, w, "cart created", cart)
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController AddItem").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	reqBody := request.CartItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Any(log.KeyCartItem, reqBody).Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "resolving cart lookup").Logger()
	lk, err := lookup(c, w, r, true)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "adding cart item").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.AddItem(c, lk, reqBody)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("added cart item")

	writeCart(c, w, "cart item added", cart)
}

func (t CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItem")
	defer span.End()

	pathValues := mux.Vars(r)
	key := itemKey(pathValues["key"])
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateItem").
		Any(log.KeyPathValues, pathValues).
		Str(log.KeyProcess, "decoding request body").
		Logger()

	reqBody := request.UpdateCartItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "resolving cart lookup").Logger()
	lk, err := lookup(c, w, r, false)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "updating cart item").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.UpdateItem(c, lk, key, reqBody)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Msg("updated cart item")

	writeCart(c, w, "cart item updated", cart)
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Any(log.KeyPathValues, pathValues).
		Str(log.KeyProcess, "resolving cart lookup").
		Logger()

	lk, err := lookup(c, w, r, false)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "removing cart item").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.RemoveItem(c, lk, itemKey(pathValues["key"]))
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Msg("removed cart item")

	writeCart(c, w, "cart item removed", cart)
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController ClearCart").
		Str(log.KeyProcess, "resolving cart lookup").
		Logger()

	lk, err := lookup(c, w, r, false)
	if err != nil {
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.ClearCart(c, lk)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Msg("cleared cart")

	writeCart(c, w, "cart cleared", cart)
}

func (t CartController) MergeGuestCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController MergeGuestCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController MergeGuestCart").
		Str(log.KeyProcess, "getting userId from jwtToken").
		Logger()

	userID, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		writeError(c, w, span, logger, http.StatusUnauthorized, err)
		return
	}
	logger = logger.With().Str(log.KeyUserID, userID.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.MergeCart{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		writeError(c, w, span, logger, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyGuestCartID, reqBody.GuestCartID.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "merging guest cart").Logger()
	c = logger.WithContext(c)
	cart, err := t.service.MergeGuestCartIntoUser(c, userID, reqBody.GuestCartID)
	if err != nil {
		writeError(c, w, span, logger, statusCode(err), err)
		return
	}
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("merged guest cart")

	writeCart(c, w, "guest cart merged", cart)
}
