package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	"Sentinel/pkg/config"
	xhttp "Sentinel/pkg/http"
	applogger "Sentinel/pkg/logger"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrMalformed is returned when the exchange answers with a payload that cannot be parsed
// or carries a non-finite number.
var ErrMalformed = drepo.ErrMalformed

const (
	premiumIndexPath = "/fapi/v1/premiumIndex"
	topRatioPath     = "/futures/data/topLongShortAccountRatio"

	endpointTicker   = "ticker_24h"
	endpointPremium  = "premium_index"
	endpointOI       = "open_interest"
	endpointGlobalLS = "global_long_short"
	endpointTopLS    = "top_long_short"
	endpointTrades   = "agg_trades"
)

// Client reads USDⓈ-M futures market data. All calls share one rate limiter.
type Client struct {
	futures  *futures.Client
	http     *xhttp.Client
	baseURL  string
	limiter  *rate.Limiter
	breakers *breakers
	logger   *applogger.Logger
}

var _ drepo.MarketData = (*Client)(nil)

func NewClient(cfg config.Exchange, logger *applogger.Logger) *Client {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fc := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	fc.HTTPClient = httpClient
	fc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		futures:  fc,
		http:     xhttp.NewClient(xhttp.WithTimeout(cfg.HTTPTimeout)),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breakers: newBreakers(cfg, logger),
		logger:   logger,
	}
}

// BreakerState exposes the circuit state of one endpoint.
func (c *Client) BreakerState(endpoint string) gobreaker.State {
	return c.breakers.State(endpoint)
}

func call[T any](ctx context.Context, c *Client, endpoint string, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("%s: rate limit wait: %w", endpoint, err)
	}
	out, err := execute(c.breakers.get(endpoint), fn)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", endpoint, err)
	}
	return out, nil
}

func (c *Client) Get24hTicker(ctx context.Context, symbol string) (models.Ticker24h, error) {
	return call(ctx, c, endpointTicker, func() (models.Ticker24h, error) {
		stats, err := c.futures.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return models.Ticker24h{}, err
		}
		for _, s := range stats {
			if s == nil || (s.Symbol != "" && s.Symbol != symbol) {
				continue
			}
			return parseTicker(s)
		}
		return models.Ticker24h{}, drepo.ErrNoData
	})
}

func parseTicker(s *futures.PriceChangeStats) (models.Ticker24h, error) {
	p := parser{}
	t := models.Ticker24h{
		Last:          p.float("lastPrice", s.LastPrice),
		Change:        p.float("priceChange", s.PriceChange),
		ChangePercent: p.float("priceChangePercent", s.PriceChangePercent),
		High:          p.float("highPrice", s.HighPrice),
		Low:           p.float("lowPrice", s.LowPrice),
	}
	if p.err != nil {
		return models.Ticker24h{}, p.err
	}
	return t, nil
}

type premiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

func (c *Client) GetFundingRate(ctx context.Context, symbol string) (models.FundingInfo, error) {
	return call(ctx, c, endpointPremium, func() (models.FundingInfo, error) {
		var raw premiumIndex
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + premiumIndexPath,
			QueryParams: map[string][]string{"symbol": {symbol}},
		}, &raw)
		if err != nil {
			return models.FundingInfo{}, err
		}
		if raw.LastFundingRate == "" {
			return models.FundingInfo{}, drepo.ErrNoData
		}

		p := parser{}
		fi := models.FundingInfo{
			Rate:       p.float("lastFundingRate", raw.LastFundingRate),
			MarkPrice:  p.optional("markPrice", raw.MarkPrice),
			IndexPrice: p.optional("indexPrice", raw.IndexPrice),
		}
		if raw.NextFundingTime > 0 {
			fi.NextSettlementTime = time.UnixMilli(raw.NextFundingTime)
		}
		if p.err != nil {
			return models.FundingInfo{}, p.err
		}
		return fi, nil
	})
}

func (c *Client) GetOpenInterest(ctx context.Context, symbol string) (float64, error) {
	return call(ctx, c, endpointOI, func() (float64, error) {
		oi, err := c.futures.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, err
		}
		if oi == nil || oi.OpenInterest == "" {
			return 0, drepo.ErrNoData
		}
		p := parser{}
		v := p.float("openInterest", oi.OpenInterest)
		return v, p.err
	})
}

type ratioEntry struct {
	LongShortRatio string `json:"longShortRatio"`
	LongAccount    string `json:"longAccount"`
	ShortAccount   string `json:"shortAccount"`
	Timestamp      int64  `json:"timestamp"`
}

// GetLongShortRatio fetches the global account ratio and the top-trader ratio concurrently.
// The top-trader ratio is optional: when it fails the reading carries nil.
func (c *Client) GetLongShortRatio(ctx context.Context, symbol, period string) (models.LongShortReading, error) {
	var (
		wg     sync.WaitGroup
		top    *float64
		topErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		top, topErr = c.topTraderRatio(ctx, symbol, period)
	}()

	reading, err := call(ctx, c, endpointGlobalLS, func() (models.LongShortReading, error) {
		rows, err := c.futures.NewLongShortRatioService().
			Symbol(symbol).
			Period(period).
			Limit(1).
			Do(ctx)
		if err != nil {
			return models.LongShortReading{}, err
		}
		if len(rows) == 0 || rows[len(rows)-1] == nil {
			return models.LongShortReading{}, drepo.ErrNoData
		}
		last := rows[len(rows)-1]
		p := parser{}
		r := models.LongShortReading{
			Ratio:        p.float("longShortRatio", last.LongShortRatio),
			LongAccount:  p.optional("longAccount", last.LongAccount),
			ShortAccount: p.optional("shortAccount", last.ShortAccount),
		}
		return r, p.err
	})
	wg.Wait()

	if err != nil {
		return models.LongShortReading{}, err
	}
	if topErr != nil {
		c.logger.Debug("top trader ratio unavailable",
			applogger.String("symbol", symbol),
			applogger.Error(topErr),
		)
	}
	reading.TopRatio = top
	return reading, nil
}

func (c *Client) topTraderRatio(ctx context.Context, symbol, period string) (*float64, error) {
	return call(ctx, c, endpointTopLS, func() (*float64, error) {
		var rows []ratioEntry
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.baseURL + topRatioPath,
			QueryParams: map[string][]string{
				"symbol": {symbol},
				"period": {period},
				"limit":  {"1"},
			},
		}, &rows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, drepo.ErrNoData
		}
		p := parser{}
		v := p.float("longShortRatio", rows[len(rows)-1].LongShortRatio)
		if p.err != nil {
			return nil, p.err
		}
		return &v, nil
	})
}

func (c *Client) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	return call(ctx, c, endpointTrades, func() ([]models.Trade, error) {
		rows, err := c.futures.NewAggTradesService().Symbol(symbol).Limit(limit).Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, drepo.ErrNoData
		}
		trades := make([]models.Trade, 0, len(rows))
		p := parser{}
		for _, r := range rows {
			if r == nil {
				continue
			}
			trades = append(trades, models.Trade{
				Time:     time.UnixMilli(r.Timestamp),
				Price:    p.float("price", r.Price),
				Quantity: p.float("quantity", r.Quantity),
				// buyer is maker, so the aggressor sold
				IsSell: r.IsBuyerMaker,
			})
		}
		if p.err != nil {
			return nil, p.err
		}
		return trades, nil
	})
}

// parser collects the first numeric parse failure.
type parser struct {
	err error
}

func (p *parser) float(field, raw string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = fmt.Errorf("%w: %s=%q", ErrMalformed, field, raw)
		return 0
	}
	return v
}

func (p *parser) optional(field, raw string) float64 {
	if raw == "" {
		return 0
	}
	return p.float(field, raw)
}
