package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	inHttp "github.com/Alturino/pricing/internal/http"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/otel"
	"github.com/Alturino/pricing/pricing/pkg/response"
)

// Client calls the pricing service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: otelhttp.DefaultClient}
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, http: httpClient}
}

type priceEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		Price response.EffectivePrice `json:"price"`
	} `json:"data"`
}

func (cl *Client) GetEffectivePrice(
	c context.Context,
	productID uuid.UUID,
	customerID *uuid.UUID,
) (response.EffectivePrice, error) {
	c, span := otel.Tracer.Start(c, "PricingClient GetEffectivePrice")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PricingClient GetEffectivePrice").
		Str(log.KeyProductID, productID.String()).
		Str(log.KeyProcess, "requesting effective price").
		Logger()

	endpoint, err := url.JoinPath(cl.baseURL, "prices", productID.String())
	if err != nil {
		err = fmt.Errorf("failed building pricing url with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	if customerID != nil {
		endpoint += "?" + url.Values{"customerId": {customerID.String()}}.Encode()
	}

	req, err := http.NewRequestWithContext(c, http.MethodGet, endpoint, nil)
	if err != nil {
		err = fmt.Errorf("failed creating pricing request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Add(inHttp.KEY_HEADER_REQUEST_ID, requestID)
	}

	logger.Trace().Msg("requesting effective price")
	resp, err := cl.http.Do(req)
	if err != nil {
		err = fmt.Errorf("failed requesting effective price with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	defer resp.Body.Close()

	body := priceEnvelope{}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = fmt.Errorf("failed decoding pricing response with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("pricing service responded statusCode=%d message=%s", resp.StatusCode, body.Message)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.EffectivePrice{}, err
	}
	logger.Trace().Any(log.KeyEffectivePrice, body.Data.Price).Msg("received effective price")

	return body.Data.Price, nil
}
