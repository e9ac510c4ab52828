package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kchart_go/internal/domain"
	"kchart_go/internal/upstream"
)

func TestDailyBars(t *testing.T) {
	payload := &upstream.TradeSummaryPayload{
		TradeSummary: []upstream.RawSummary{
			{Date: "2026-08-25", ClosePrice: "100.00", LatestTradePrice: "105.50", BuyAmount: "1200", SellAmount: "800"},
			{Date: "not-a-date", ClosePrice: "1", LatestTradePrice: "2"},
			{Date: "2026-08-26", ClosePrice: "105.50", LatestTradePrice: "", BuyAmount: "junk", SellAmount: "300"},
			{Date: "2026-08-27", ClosePrice: "100", LatestTradePrice: "110", BuyAmount: "50", SellAmount: "50"},
		},
	}

	bars := DailyBars(payload)
	require.Len(t, bars, 3, "unparseable date must skip only that record")

	day, _ := time.Parse("2006-01-02", "2026-08-25")
	assert.Equal(t, day.UTC().Unix(), bars[0].Time)
	assert.Equal(t, "2026-08-25", bars[0].Date)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 105.5, bars[0].Close)
	assert.Equal(t, int64(1200), bars[0].BuyVolume)
	assert.Equal(t, domain.LimitNone, bars[0].Limit)

	// Missing latest price falls back to the reference open; malformed
	// amount coerces to zero.
	assert.Equal(t, 105.5, bars[1].Close)
	assert.Equal(t, int64(0), bars[1].BuyVolume)
	assert.Equal(t, int64(300), bars[1].SellVolume)

	// 100 -> 110 is a 10% move, beyond the 9.95 threshold.
	assert.Equal(t, domain.LimitUp, bars[2].Limit)
}

func TestNegativeVolumesClampToZero(t *testing.T) {
	bars := DailyBars(&upstream.TradeSummaryPayload{
		TradeSummary: []upstream.RawSummary{
			{Date: "2026-08-27", ClosePrice: "100", LatestTradePrice: "101", BuyAmount: "-10", SellAmount: "5"},
		},
	})
	require.Len(t, bars, 1)
	assert.Zero(t, bars[0].BuyVolume)
	assert.Equal(t, int64(5), bars[0].SellVolume)

	// A negative delta would drive the minute bucket's cumulative counter
	// backwards, so it must never leave this layer.
	upd, ok := IntradayUpdate(&upstream.IntradayPayload{
		Time: "09:31:07", Price: "100", BuyVolume: "-5", SellVolume: "3",
	})
	require.True(t, ok)
	assert.Zero(t, upd.BuyDelta)
	assert.Equal(t, int64(3), upd.SellDelta)

	trades := Trades(&upstream.TradeHistoryPayload{
		TradeHistory: []upstream.RawTrade{
			{TradeTime: "1756350000000", Price: "10", Amount: "-4"},
		},
	}, domain.SideBuy)
	require.Len(t, trades, 1)
	assert.Zero(t, trades[0].Quantity)
}

func TestDailyBars_Deterministic(t *testing.T) {
	payload := &upstream.TradeSummaryPayload{
		TradeSummary: []upstream.RawSummary{
			{Date: "2026-08-25", ClosePrice: "100", LatestTradePrice: "101", BuyAmount: "5", SellAmount: "6"},
		},
	}

	first := DailyBars(payload)
	second := DailyBars(payload)
	assert.Equal(t, first, second, "same payload must always yield identical output")
}

func TestDailyBars_Empty(t *testing.T) {
	assert.Nil(t, DailyBars(nil))
	assert.Nil(t, DailyBars(&upstream.TradeSummaryPayload{}))
}

func TestTrades(t *testing.T) {
	payload := &upstream.TradeHistoryPayload{
		TradeHistory: []upstream.RawTrade{
			{TradeTime: "1756350000000", Price: "12.34", Amount: "7", Side: "sell"},
			{TradeTime: "garbage", Price: "1", Amount: "1"},
			{TradeTime: "1756350001000", Price: "bad", Amount: "3"},
		},
	}

	trades := Trades(payload, domain.SideBuy)
	require.Len(t, trades, 2)

	assert.Equal(t, int64(1756350000000), trades[0].Timestamp)
	assert.Equal(t, domain.SideSell, trades[0].Side, "explicit side wins over fallback")

	assert.Equal(t, 0.0, trades[1].Price, "malformed price coerces to zero")
	assert.Equal(t, domain.SideBuy, trades[1].Side, "missing side takes the configured fallback")
}

func TestOrders(t *testing.T) {
	payload := &upstream.OrderBookPayload{
		BuyOrders: []upstream.RawOrder{
			{Price: "99.5", Amount: "10"},
			{Price: "98.0", Amount: "junk"},
		},
		SellOrders: []upstream.RawOrder{
			{Price: "100.5", Amount: "4"},
		},
	}

	orders := Orders(payload)
	require.Len(t, orders, 3)
	assert.Equal(t, domain.SideBuy, orders[0].Side)
	assert.Equal(t, int64(0), orders[1].Quantity)
	assert.Equal(t, domain.SideSell, orders[2].Side)
	assert.Equal(t, 100.5, orders[2].Price)
}

func TestIntradayUpdate(t *testing.T) {
	t.Run("valid tick", func(t *testing.T) {
		upd, ok := IntradayUpdate(&upstream.IntradayPayload{
			Time: "09:31:07", Price: "101.25", BuyVolume: "12", SellVolume: "3",
		})
		require.True(t, ok)
		assert.Equal(t, "09:31:07", upd.Clock)
		assert.Equal(t, 101.25, upd.Price)
		assert.Equal(t, int64(12), upd.BuyDelta)
		assert.Equal(t, int64(3), upd.SellDelta)
	})

	t.Run("unparseable clock drops the tick", func(t *testing.T) {
		_, ok := IntradayUpdate(&upstream.IntradayPayload{Time: "25:99:00", Price: "1"})
		assert.False(t, ok)
	})

	t.Run("malformed volumes coerce to zero", func(t *testing.T) {
		upd, ok := IntradayUpdate(&upstream.IntradayPayload{Time: "09:31:07", Price: "x", BuyVolume: "y"})
		require.True(t, ok)
		assert.Zero(t, upd.Price)
		assert.Zero(t, upd.BuyDelta)
	})
}
