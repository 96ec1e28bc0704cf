package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"resty.dev/v3"

	"github.com/Anassarwar14/tradesim/internal/config"
	"github.com/Anassarwar14/tradesim/internal/logger"
	"github.com/Anassarwar14/tradesim/internal/model"
)

const _quoteURL = "/quote"

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   string  `json:"asOf"`
}

type quoteErrorResponse struct {
	Message string `json:"message"`
}

// HTTPOracle fetches quotes from an external market-data service.
type HTTPOracle struct {
	c           *resty.Client
	rateLimiter ratelimit.Limiter

	logger logger.Logger
}

func NewHTTPOracle(cfg config.OracleConfig, logger logger.Logger) *HTTPOracle {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address).
		SetTimeout(cfg.Timeout)

	return &HTTPOracle{
		c:           client,
		rateLimiter: ratelimit.New(cfg.RateLimitPerMinute, ratelimit.Per(time.Minute)),
		logger:      logger,
	}
}

func (o *HTTPOracle) GetPrice(ctx context.Context, symbol string) (model.Quote, error) {
	if symbol == "" {
		return model.Quote{}, ErrUnknownSymbol
	}

	o.rateLimiter.Take()
	resp, err := o.c.R().
		SetQueryParam("symbol", symbol).
		SetResult(&quoteResponse{}).
		SetError(&quoteErrorResponse{}).
		SetContext(ctx).
		Get(_quoteURL)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: can't request quote for %s: %s", ErrPriceUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	o.logger.Debugf("got quote response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.StatusCode() == http.StatusNotFound {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*quoteErrorResponse); ok && e.Message != "" {
			return model.Quote{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, e.Message)
		}
		return model.Quote{}, fmt.Errorf("%w: status %s", ErrPriceUnavailable, resp.Status())
	}

	q, ok := resp.Result().(*quoteResponse)
	if !ok || q.Price <= 0 {
		return model.Quote{}, fmt.Errorf("%w: non-positive price for %s", ErrPriceUnavailable, symbol)
	}

	asOf, err := time.Parse(time.RFC3339, q.AsOf)
	if err != nil {
		asOf = time.Now().UTC()
	}

	return model.Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(q.Price),
		AsOf:   asOf,
	}, nil
}
