package domain

// Side is the direction of a trade or resting order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeCap bounds the trade ticker list. Merging evicts the oldest trades
// beyond the cap.
const TradeCap = 50

// Trade is one executed tick. Timestamp doubles as sort key and
// de-duplication key within a session.
type Trade struct {
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Side      Side    `json:"side"`
}
