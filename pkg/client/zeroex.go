package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"intent-swap/pkg/types"
)

// ZeroEx is a client for the 0x swap API
type ZeroEx struct {
	c *httpClient
}

// NewZeroEx creates a 0x client. apiKey is optional.
func NewZeroEx(baseURL, apiKey string, hc *http.Client, log logrus.FieldLogger) *ZeroEx {
	c := newHTTPClient("0x", baseURL, hc, log)
	if apiKey != "" {
		c.headers["0x-api-key"] = apiKey
	}
	return &ZeroEx{c: c}
}

// GetPrice fetches an indicative price. The taker address is never sent.
func (z *ZeroEx) GetPrice(ctx context.Context, req types.QuoteRequest) (*types.Price, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := quoteQuery(req)
	z.c.log.WithField("query", q.Encode()).Debug("fetching price")

	return getJSON[types.Price](ctx, z.c, "/price", q)
}

// GetQuote fetches an executable quote for req.TakerAddress
func (z *ZeroEx) GetQuote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TakerAddress == "" {
		return nil, types.NewValidationError("takerAddress", "taker address is required for a quote")
	}

	q := quoteQuery(req)
	q.Set("takerAddress", req.TakerAddress)
	z.c.log.WithField("query", q.Encode()).Debug("fetching quote")

	return getJSON[types.Quote](ctx, z.c, "/quote", q)
}

func quoteQuery(req types.QuoteRequest) url.Values {
	q := url.Values{}
	q.Set("sellToken", req.SellToken)
	q.Set("buyToken", req.BuyToken)
	if req.SellAmount != "" {
		q.Set("sellAmount", req.SellAmount)
	}
	if req.BuyAmount != "" {
		q.Set("buyAmount", req.BuyAmount)
	}
	return q
}
