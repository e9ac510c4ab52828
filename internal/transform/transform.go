// Package transform maps raw upstream payloads into the canonical domain
// model. Every function is pure and total: a malformed numeric field coerces
// to zero, a record with an unparseable date or clock is skipped, and one bad
// record never invalidates the rest of the batch.
package transform

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"kchart_go/internal/domain"
	"kchart_go/internal/upstream"
	"kchart_go/pkg/clock"
)

const dateLayout = "2006-01-02"

// parsePrice parses a decimal string, coercing malformed input to zero.
func parsePrice(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// parseAmount parses an integer quantity string. Malformed or negative input
// coerces to zero; volumes and quantities are non-negative in the canonical
// model. Fractional digits are truncated.
func parseAmount(s string) int64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	n := d.IntPart()
	if n < 0 {
		return 0
	}
	return n
}

// parseDate accepts the upstream date field as YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DailyBars maps a trade-summary window into daily bars. Records with an
// unparseable date are skipped; limit status is always recomputed here, never
// trusted from upstream.
func DailyBars(p *upstream.TradeSummaryPayload) []domain.DailyBar {
	if p == nil || len(p.TradeSummary) == 0 {
		return nil
	}

	bars := make([]domain.DailyBar, 0, len(p.TradeSummary))
	for _, raw := range p.TradeSummary {
		day, ok := parseDate(raw.Date)
		if !ok {
			continue
		}

		open := parsePrice(raw.ClosePrice) // upstream "close_price" is the day's reference open
		close := parsePrice(raw.LatestTradePrice)
		if close == 0 {
			close = open
		}

		bars = append(bars, domain.DailyBar{
			Time:       day.UTC().Unix(),
			Date:       day.UTC().Format(dateLayout),
			Open:       open,
			Close:      close,
			BuyVolume:  parseAmount(raw.BuyAmount),
			SellVolume: parseAmount(raw.SellAmount),
			Limit:      domain.ComputeLimitStatus(open, close),
		})
	}
	return bars
}

// Trades maps a trade-history page into trades. The upstream payload may
// omit the direction; fallback substitutes it. Records whose timestamp
// cannot be parsed are skipped.
func Trades(p *upstream.TradeHistoryPayload, fallback domain.Side) []domain.Trade {
	if p == nil || len(p.TradeHistory) == 0 {
		return nil
	}

	trades := make([]domain.Trade, 0, len(p.TradeHistory))
	for _, raw := range p.TradeHistory {
		ts, err := strconv.ParseInt(raw.TradeTime, 10, 64)
		if err != nil {
			continue
		}

		side := domain.Side(raw.Side)
		if !side.Valid() {
			side = fallback
		}

		trades = append(trades, domain.Trade{
			Timestamp: ts,
			Price:     parsePrice(raw.Price),
			Quantity:  parseAmount(raw.Amount),
			Side:      side,
		})
	}
	return trades
}

// Orders flattens an order-book snapshot into the multiset of resting
// orders. Display ordering is not established here; views recompute it.
func Orders(p *upstream.OrderBookPayload) []domain.Order {
	if p == nil {
		return nil
	}

	orders := make([]domain.Order, 0, len(p.BuyOrders)+len(p.SellOrders))
	for _, raw := range p.BuyOrders {
		orders = append(orders, domain.Order{
			Side:     domain.SideBuy,
			Price:    parsePrice(raw.Price),
			Quantity: parseAmount(raw.Amount),
		})
	}
	for _, raw := range p.SellOrders {
		orders = append(orders, domain.Order{
			Side:     domain.SideSell,
			Price:    parsePrice(raw.Price),
			Quantity: parseAmount(raw.Amount),
		})
	}
	return orders
}

// IntradayUpdate maps one push-channel tick. A tick whose clock cannot be
// parsed is dropped entirely (ok=false): without a valid minute bucket there
// is nothing to upsert.
func IntradayUpdate(p *upstream.IntradayPayload) (domain.IntradayUpdate, bool) {
	normalized, err := clock.Parse(p.Time)
	if err != nil {
		return domain.IntradayUpdate{}, false
	}

	return domain.IntradayUpdate{
		Clock:     normalized,
		Price:     parsePrice(p.Price),
		BuyDelta:  parseAmount(p.BuyVolume),
		SellDelta: parseAmount(p.SellVolume),
	}, true
}
