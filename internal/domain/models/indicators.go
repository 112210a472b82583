package models

import "time"

// Family identifies one independently refreshed indicator.
type Family string

const (
	FamilyPrice        Family = "price"
	FamilyFunding      Family = "funding"
	FamilyOpenInterest Family = "open_interest"
	FamilyLongShort    Family = "long_short"
	FamilyOrderFlow    Family = "order_flow"
)

// Families lists every indicator family in polling order.
var Families = []Family{FamilyPrice, FamilyFunding, FamilyOpenInterest, FamilyLongShort, FamilyOrderFlow}

type PriceState struct {
	Current        float64   `json:"current"`
	AbsoluteChange float64   `json:"absolute_change"`
	ChangePercent  float64   `json:"change_percent"`
	High24h        float64   `json:"high_24h"`
	Low24h         float64   `json:"low_24h"`
	LastUpdated    time.Time `json:"last_updated"`
}

type FundingState struct {
	Rate               float64   `json:"rate"` // signed fraction, 0.0001 = 0.01%
	NextSettlementTime time.Time `json:"next_settlement_time"`
	MarkPrice          float64   `json:"mark_price"`
	IndexPrice         float64   `json:"index_price"`
	LastUpdated        time.Time `json:"last_updated"`
}

type OpenInterestState struct {
	Current       float64   `json:"current"`
	Previous      float64   `json:"previous"`
	ChangePercent float64   `json:"change_percent"`
	LastUpdated   time.Time `json:"last_updated"`
}

type LongShortState struct {
	Ratio          float64   `json:"ratio"`
	TopTraderRatio *float64  `json:"top_trader_ratio"` // nil when the exchange had no data
	LongAccount    float64   `json:"long_account"`
	ShortAccount   float64   `json:"short_account"`
	LastUpdated    time.Time `json:"last_updated"`
}

type OrderFlowState struct {
	BuyNotional  float64   `json:"buy_notional"`
	SellNotional float64   `json:"sell_notional"`
	BuyCount     int       `json:"buy_count"`
	SellCount    int       `json:"sell_count"`
	Delta        float64   `json:"delta"`
	LargeTrades  []Trade   `json:"large_trades"` // newest first
	LastUpdated  time.Time `json:"last_updated"`
}

// Trade is one aggregated taker trade.
type Trade struct {
	Time     time.Time `json:"time"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	IsSell   bool      `json:"is_sell"`
}

// Notional returns price times quantity.
func (t Trade) Notional() float64 { return t.Price * t.Quantity }

// IndicatorSnapshot is the latest known value of every indicator family.
type IndicatorSnapshot struct {
	Symbol       string            `json:"symbol"`
	Price        PriceState        `json:"price"`
	Funding      FundingState      `json:"funding"`
	OpenInterest OpenInterestState `json:"open_interest"`
	LongShort    LongShortState    `json:"long_short"`
	OrderFlow    OrderFlowState    `json:"order_flow"`
}

// Clone returns a copy that shares no memory with s.
func (s IndicatorSnapshot) Clone() IndicatorSnapshot {
	out := s
	if s.LongShort.TopTraderRatio != nil {
		v := *s.LongShort.TopTraderRatio
		out.LongShort.TopTraderRatio = &v
	}
	if s.OrderFlow.LargeTrades != nil {
		out.OrderFlow.LargeTrades = append([]Trade(nil), s.OrderFlow.LargeTrades...)
	}
	return out
}

// LastUpdated returns the refresh time of one family.
func (s IndicatorSnapshot) LastUpdated(f Family) time.Time {
	switch f {
	case FamilyPrice:
		return s.Price.LastUpdated
	case FamilyFunding:
		return s.Funding.LastUpdated
	case FamilyOpenInterest:
		return s.OpenInterest.LastUpdated
	case FamilyLongShort:
		return s.LongShort.LastUpdated
	case FamilyOrderFlow:
		return s.OrderFlow.LastUpdated
	}
	return time.Time{}
}

// Ticker24h is the payload of a rolling 24h ticker fetch.
type Ticker24h struct {
	Last          float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
}

// FundingInfo is the payload of a funding/premium index fetch.
type FundingInfo struct {
	Rate               float64
	NextSettlementTime time.Time
	MarkPrice          float64
	IndexPrice         float64
}

// LongShortReading combines the global and top-trader account ratios.
type LongShortReading struct {
	Ratio        float64
	TopRatio     *float64
	LongAccount  float64
	ShortAccount float64
}
