package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kchart_go/internal/domain"
	"kchart_go/internal/event"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(16, nil, nil)
}

func bar(date string, day int64, open, close float64) domain.DailyBar {
	return domain.DailyBar{
		Time:  day * 86400,
		Date:  date,
		Open:  open,
		Close: close,
		Limit: domain.ComputeLimitStatus(open, close),
	}
}

func historical(item string, bars ...domain.DailyBar) *event.HistoricalWindowEvent {
	return &event.HistoricalWindowEvent{BaseEvent: event.BaseEvent{Item: item}, Bars: bars}
}

func TestHistoricalWindow_SortsAndDeduplicates(t *testing.T) {
	r := newTestReconciler()

	r.Apply(historical("1",
		bar("2026-08-27", 3, 100, 101),
		bar("2026-08-25", 1, 90, 91),
		bar("2026-08-25", 1, 90, 95), // duplicate day, this one must win
		bar("2026-08-26", 2, 95, 96),
	))

	view, ok := r.ChartView("1", 1)
	require.True(t, ok)
	require.Len(t, view.Bars, 3)

	assert.Equal(t, "2026-08-25", view.Bars[0].Date)
	assert.Equal(t, 95.0, view.Bars[0].Close, "later duplicate must win")
	assert.Equal(t, "2026-08-26", view.Bars[1].Date)
	assert.Equal(t, "2026-08-27", view.Bars[2].Date)
}

func TestHistoricalWindow_ReplacesWholesale(t *testing.T) {
	r := newTestReconciler()

	r.Apply(historical("1", bar("2026-08-25", 1, 90, 91)))
	r.Apply(historical("1", bar("2026-08-26", 2, 95, 96)))

	view, _ := r.ChartView("1", 1)
	require.Len(t, view.Bars, 1, "a new window must not merge with the old one")
	assert.Equal(t, "2026-08-26", view.Bars[0].Date)
}

func TestHistoricalWindow_RecomputesLimit(t *testing.T) {
	r := newTestReconciler()

	tainted := bar("2026-08-25", 1, 100, 110)
	tainted.Limit = domain.LimitDown // wrong on purpose
	r.Apply(historical("1", tainted))

	view, _ := r.ChartView("1", 1)
	assert.Equal(t, domain.LimitUp, view.Bars[0].Limit)
}

func intradayTick(item, clk string, price float64, buy, sell int64) *event.IntradayUpdateEvent {
	return &event.IntradayUpdateEvent{
		BaseEvent: event.BaseEvent{Item: item},
		Update:    domain.IntradayUpdate{Clock: clk, Price: price, BuyDelta: buy, SellDelta: sell},
	}
}

func TestIntraday_MinuteBucketing(t *testing.T) {
	r := newTestReconciler()
	r.Apply(historical("1", bar("2026-08-27", 3, 100, 100)))

	r.Apply(intradayTick("1", "09:31:05", 100.5, 10, 0))
	r.Apply(intradayTick("1", "09:31:40", 100.8, 5, 3))
	r.Apply(intradayTick("1", "09:32:01", 101.0, 2, 0))

	points, ok := r.IntradayView("1")
	require.True(t, ok)
	require.Len(t, points, 2, "same-minute ticks must collapse into one point")

	assert.Equal(t, "09:31:40", points[0].Clock, "clock advances to the newest tick")
	assert.Equal(t, 100.8, points[0].Price)
	assert.Equal(t, int64(15), points[0].BuyVolume, "deltas accumulate within a minute")
	assert.Equal(t, int64(3), points[0].SellVolume)

	assert.Equal(t, "09:32:01", points[1].Clock)
	assert.Equal(t, int64(2), points[1].BuyVolume)
}

func TestIntraday_LimitAgainstDayOpen(t *testing.T) {
	r := newTestReconciler()
	r.Apply(historical("1", bar("2026-08-27", 3, 100, 100)))

	r.Apply(intradayTick("1", "10:00:00", 110, 1, 0))

	points, _ := r.IntradayView("1")
	require.Len(t, points, 1)
	assert.Equal(t, domain.LimitUp, points[0].Limit, "110 vs open 100 crosses the threshold")
}

func TestIntraday_CapEvictsOldest(t *testing.T) {
	r := newTestReconciler()

	for i := 0; i < domain.IntradayCap+20; i++ {
		clk := fmt.Sprintf("%02d:%02d:00", 9+i/60, i%60)
		r.Apply(intradayTick("1", clk, float64(i), 1, 0))
	}

	points, _ := r.IntradayView("1")
	require.Len(t, points, domain.IntradayCap)
	assert.Equal(t, float64(20), points[0].Price, "oldest points evicted first")
}

func lastBarTick(item string, b domain.DailyBar) *event.LastBarTickEvent {
	return &event.LastBarTickEvent{BaseEvent: event.BaseEvent{Item: item}, Bar: b}
}

func TestLastBarTick(t *testing.T) {
	r := newTestReconciler()
	r.Apply(historical("1",
		bar("2026-08-26", 2, 95, 96),
		bar("2026-08-27", 3, 100, 101),
	))

	t.Run("same day replaces the tail bar", func(t *testing.T) {
		r.Apply(lastBarTick("1", bar("2026-08-27", 3, 100, 103)))

		view, _ := r.ChartView("1", 1)
		require.Len(t, view.Bars, 2)
		assert.Equal(t, 103.0, view.Bars[1].Close)
	})

	t.Run("newer day appends", func(t *testing.T) {
		r.Apply(lastBarTick("1", bar("2026-08-28", 4, 103, 104)))

		view, _ := r.ChartView("1", 1)
		require.Len(t, view.Bars, 3)
		assert.Equal(t, "2026-08-28", view.Bars[2].Date)
	})

	t.Run("stale older day is dropped", func(t *testing.T) {
		r.Apply(lastBarTick("1", bar("2026-08-26", 2, 95, 1)))

		view, _ := r.ChartView("1", 1)
		require.Len(t, view.Bars, 3)
		assert.Equal(t, 96.0, view.Bars[0].Close, "older bars stay untouched")
	})

	t.Run("first tick seeds an empty series", func(t *testing.T) {
		r.Apply(lastBarTick("fresh", bar("2026-08-28", 4, 10, 11)))

		view, ok := r.ChartView("fresh", 1)
		require.True(t, ok)
		require.Len(t, view.Bars, 1)
	})
}

func tradeBatch(item string, trades ...domain.Trade) *event.TradeBatchEvent {
	return &event.TradeBatchEvent{BaseEvent: event.BaseEvent{Item: item}, Trades: trades}
}

func TestTradeMerge(t *testing.T) {
	r := newTestReconciler()

	first := tradeBatch("1",
		domain.Trade{Timestamp: 1000, Price: 10, Quantity: 1, Side: domain.SideBuy},
		domain.Trade{Timestamp: 3000, Price: 12, Quantity: 2, Side: domain.SideSell},
	)
	r.Apply(first)
	r.Apply(tradeBatch("1",
		domain.Trade{Timestamp: 2000, Price: 11, Quantity: 1, Side: domain.SideBuy},
		domain.Trade{Timestamp: 3000, Price: 12, Quantity: 2, Side: domain.SideSell}, // overlap
	))

	trades, ok := r.TradesView("1")
	require.True(t, ok)
	require.Len(t, trades, 3, "overlapping timestamps must not duplicate")

	assert.Equal(t, int64(3000), trades[0].Timestamp, "newest first")
	assert.Equal(t, int64(2000), trades[1].Timestamp)
	assert.Equal(t, int64(1000), trades[2].Timestamp)

	t.Run("re-merging the same batch is a no-op", func(t *testing.T) {
		r.Apply(first)
		again, _ := r.TradesView("1")
		assert.Equal(t, trades, again)
	})
}

func TestTradeMerge_CapKeepsNewest(t *testing.T) {
	r := newTestReconciler()

	batch := make([]domain.Trade, 0, domain.TradeCap+10)
	for i := 0; i < domain.TradeCap+10; i++ {
		batch = append(batch, domain.Trade{Timestamp: int64(i), Price: 1, Quantity: 1, Side: domain.SideBuy})
	}
	r.Apply(tradeBatch("1", batch...))

	trades, _ := r.TradesView("1")
	require.Len(t, trades, domain.TradeCap)
	assert.Equal(t, int64(domain.TradeCap+9), trades[0].Timestamp)
	assert.Equal(t, int64(10), trades[len(trades)-1].Timestamp, "oldest beyond the cap evicted")
}

func bookSnapshot(item string, orders ...domain.Order) *event.OrderBookSnapshotEvent {
	return &event.OrderBookSnapshotEvent{BaseEvent: event.BaseEvent{Item: item}, Orders: orders}
}

func TestOrderBook(t *testing.T) {
	r := newTestReconciler()

	r.Apply(bookSnapshot("1",
		domain.Order{Side: domain.SideBuy, Price: 98, Quantity: 30},
		domain.Order{Side: domain.SideBuy, Price: 99, Quantity: 10},
		domain.Order{Side: domain.SideSell, Price: 101, Quantity: 40},
		domain.Order{Side: domain.SideSell, Price: 100.5, Quantity: 20},
	))

	view, ok := r.OrderBookView("1")
	require.True(t, ok)

	assert.Equal(t, 99.0, view.Buys[0].Price, "buys descend from the best bid")
	assert.Equal(t, 100.5, view.Sells[0].Price, "sells ascend from the best ask")
	assert.Equal(t, 40.0, view.BuyPercent)
	assert.Equal(t, 60.0, view.SellPercent)

	t.Run("snapshot replaces wholesale", func(t *testing.T) {
		r.Apply(bookSnapshot("1", domain.Order{Side: domain.SideBuy, Price: 97, Quantity: 5}))

		view, _ := r.OrderBookView("1")
		require.Len(t, view.Buys, 1)
		assert.Empty(t, view.Sells)
	})

	t.Run("empty book splits 50/50", func(t *testing.T) {
		r.Apply(bookSnapshot("1"))

		view, _ := r.OrderBookView("1")
		assert.Equal(t, 50.0, view.BuyPercent)
		assert.Equal(t, 50.0, view.SellPercent)
	})
}

func TestChartView_Details(t *testing.T) {
	r := newTestReconciler()
	r.Apply(historical("1",
		bar("2026-08-26", 2, 100, 110),
		bar("2026-08-27", 3, 110, 99),
	))

	view, _ := r.ChartView("1", 1)
	require.Len(t, view.Details, 2)

	assert.InDelta(t, 10.0, view.Details[0].ChangePct, 1e-9, "first bar changes against its own open")
	assert.False(t, view.Details[0].Latest)

	assert.InDelta(t, -10.0, view.Details[1].ChangePct, 1e-9, "later bars change against the previous close")
	assert.True(t, view.Details[1].Latest)
}

func TestChartView_VolumeScale(t *testing.T) {
	r := newTestReconciler()
	b := bar("2026-08-27", 3, 100, 100)
	b.BuyVolume, b.SellVolume = 600, 400
	r.Apply(historical("1", b))

	view, _ := r.ChartView("1", 100)
	require.Len(t, view.TotalVolume, 1)
	assert.Equal(t, 10.0, view.TotalVolume[0].Value)
	assert.Equal(t, 4.0, view.SellVolume[0].Value)
}

func TestSummaryView(t *testing.T) {
	r := newTestReconciler()

	_, ok := r.SummaryView("1")
	assert.False(t, ok, "no summary before any data")

	r.Apply(historical("1",
		bar("2026-08-26", 2, 100, 100),
		bar("2026-08-27", 3, 100, 105),
	))

	s, ok := r.SummaryView("1")
	require.True(t, ok)
	assert.Equal(t, "2026-08-27", s.Date)
	assert.Equal(t, 105.0, s.LatestPrice)
	assert.InDelta(t, 5.0, s.ChangePct, 1e-9)
}

func TestViews_ReturnCopies(t *testing.T) {
	r := newTestReconciler()
	r.Apply(historical("1", bar("2026-08-27", 3, 100, 101)))
	r.Apply(tradeBatch("1", domain.Trade{Timestamp: 1, Price: 1, Quantity: 1, Side: domain.SideBuy}))

	view, _ := r.ChartView("1", 1)
	view.Bars[0].Close = -1
	trades, _ := r.TradesView("1")
	trades[0].Price = -1

	fresh, _ := r.ChartView("1", 1)
	assert.Equal(t, 101.0, fresh.Bars[0].Close, "mutating a view must not leak into state")
	freshTrades, _ := r.TradesView("1")
	assert.Equal(t, 1.0, freshTrades[0].Price)
}

func TestItemIsolation(t *testing.T) {
	r := newTestReconciler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Apply(historical("1", bar("2026-08-27", 3, 100, 101)))
	r.Apply(historical("2", bar("2026-08-27", 3, 50, 51)))

	one, _ := r.ChartView("1", 1)
	two, _ := r.ChartView("2", 1)
	assert.Equal(t, 101.0, one.Bars[0].Close)
	assert.Equal(t, 51.0, two.Bars[0].Close)

	r.Forget("1")
	assert.False(t, r.Has("1"))
	assert.True(t, r.Has("2"))
	assert.Equal(t, []string{"2"}, r.Items())
}

func TestForget_DrainsQueuedEventsFirst(t *testing.T) {
	r := newTestReconciler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Apply(historical("1", bar("2026-08-27", 3, 100, 101)))

	// An update already sitting in the inbox when the item is released must
	// be applied and then discarded along with the rest of the state, never
	// left behind as a freshly created item.
	r.Inbox() <- bookSnapshot("1", domain.Order{Side: domain.SideBuy, Price: 99, Quantity: 1})
	r.Forget("1")

	assert.False(t, r.Has("1"), "released item must stay gone")
	assert.Empty(t, r.Items())
	_, ok := r.OrderBookView("1")
	assert.False(t, ok)
}

// Applying the same event stream twice must produce identical state: this is
// what makes journal replay trustworthy.
func TestApply_Deterministic(t *testing.T) {
	stream := []event.Event{
		historical("1", bar("2026-08-26", 2, 95, 96), bar("2026-08-27", 3, 100, 101)),
		intradayTick("1", "09:31:05", 100.5, 10, 0),
		intradayTick("1", "09:31:40", 100.8, 5, 3),
		tradeBatch("1", domain.Trade{Timestamp: 1000, Price: 10, Quantity: 1, Side: domain.SideBuy}),
		lastBarTick("1", bar("2026-08-27", 3, 100, 103)),
		bookSnapshot("1", domain.Order{Side: domain.SideBuy, Price: 98, Quantity: 30}),
	}

	a, b := newTestReconciler(), newTestReconciler()
	for _, ev := range stream {
		a.Apply(ev)
		b.Apply(ev)
	}

	chartA, _ := a.ChartView("1", 1)
	chartB, _ := b.ChartView("1", 1)
	assert.Equal(t, chartA, chartB)

	intraA, _ := a.IntradayView("1")
	intraB, _ := b.IntradayView("1")
	assert.Equal(t, intraA, intraB)

	tradesA, _ := a.TradesView("1")
	tradesB, _ := b.TradesView("1")
	assert.Equal(t, tradesA, tradesB)
}
