package domain

// LimitStatus classifies a price move against the daily limit threshold.
type LimitStatus string

const (
	LimitUp   LimitStatus = "up"
	LimitDown LimitStatus = "down"
	LimitNone LimitStatus = "none"
)

// LimitThresholdPct is the limit-up/limit-down threshold in percent.
// A move of exactly +9.95% counts as "up", exactly -9.95% as "down".
const LimitThresholdPct = 9.95

// ComputeLimitStatus classifies the change from open to close.
// A zero open yields "none" to avoid division by zero.
func ComputeLimitStatus(open, close float64) LimitStatus {
	if open == 0 {
		return LimitNone
	}
	changePct := (close - open) / open * 100

	switch {
	case changePct >= LimitThresholdPct:
		return LimitUp
	case changePct <= -LimitThresholdPct:
		return LimitDown
	default:
		return LimitNone
	}
}

// DailyBar is one trading-day aggregate in the canonical price/volume series.
// The series is kept sorted ascending by Time with no duplicate Time values.
type DailyBar struct {
	Time       int64       `json:"time"` // Unix seconds, unique ascending key
	Date       string      `json:"date"` // YYYY-MM-DD, same day as Time
	Open       float64     `json:"open"`
	Close      float64     `json:"close"`
	BuyVolume  int64       `json:"buy_volume"`
	SellVolume int64       `json:"sell_volume"`
	Limit      LimitStatus `json:"limit_status"`
}

// TotalVolume returns the combined buy and sell volume of the day.
func (b DailyBar) TotalVolume() int64 {
	return b.BuyVolume + b.SellVolume
}
