package upstream

import "encoding/json"

// envelope is the generic upstream response wrapper. Every endpoint returns
// a success flag plus payload or an error message.
type envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Msg       string          `json:"msg"`
	Data      json.RawMessage `json:"data"`
}

// RawOrder is one resting order as it appears on the wire. All numeric
// fields are strings; the transform layer owns parsing.
type RawOrder struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	ItemID         string `json:"item_id"`
	Price          string `json:"price"`
	Amount         string `json:"amount"`
	OrderType      int    `json:"order_type"`
	MarketType     int    `json:"market_type"`
	OrderTime      string `json:"order_time"`
	ExpirationTime string `json:"expiration_time"`
}

// OrderBookPayload is a full order-book snapshot, already split by side.
type OrderBookPayload struct {
	BuyOrders  []RawOrder `json:"buy_orders"`
	SellOrders []RawOrder `json:"sell_orders"`
}

// RawTrade is one executed trade on the wire. Side may be absent; the
// transform layer substitutes the configured fallback.
type RawTrade struct {
	TradeTime string `json:"trade_time"` // Unix milliseconds as string
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Side      string `json:"side,omitempty"`
}

// TradeHistoryPayload is one page of trade history.
type TradeHistoryPayload struct {
	TradeHistory []RawTrade `json:"trade_history"`
	Total        int        `json:"total"`
}

// RawSummary is one per-day summary record. Never mutated; always
// transformed before entering the canonical model.
type RawSummary struct {
	Date             string `json:"date"` // YYYY-MM-DD
	ClosePrice       string `json:"close_price"`
	LatestTradePrice string `json:"latest_trade_price"`
	PriceChangeRate  string `json:"price_change_rate"`
	BuyAmount        string `json:"buy_amount"`
	SellAmount       string `json:"sell_amount"`
}

// TradeSummaryPayload is a window of per-day summary records.
type TradeSummaryPayload struct {
	TradeSummary []RawSummary `json:"trade_summary"`
}

// IntradayPayload is one push-channel tick. Volume fields are deltas since
// the previous tick.
type IntradayPayload struct {
	Time       string `json:"time"` // wall clock HH:MM:SS
	Price      string `json:"price"`
	BuyVolume  string `json:"buy_volume"`
	SellVolume string `json:"sell_volume"`
}
