package domain

// IntradayCap bounds the intraday buffer. Once the buffer exceeds the cap
// the oldest point is evicted (FIFO).
const IntradayCap = 100

// IntradayPoint is one rendered sub-day observation. Points are bucketed by
// clock minute: at most one point exists per minute, and its volume counters
// accumulate every update that lands in the same minute.
type IntradayPoint struct {
	Clock      string      `json:"time"` // wall-clock HH:MM:SS
	Price      float64     `json:"price"`
	Limit      LimitStatus `json:"limit_status"` // relative to the day's open
	BuyVolume  int64       `json:"buy_volume"`
	SellVolume int64       `json:"sell_volume"`
}

// IntradayUpdate is a raw sub-minute tick as delivered by the push channel
// or a poll cycle. Volume fields are deltas since the previous tick, not
// running totals.
type IntradayUpdate struct {
	Clock     string
	Price     float64
	BuyDelta  int64
	SellDelta int64
}
