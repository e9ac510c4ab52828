package engine

import (
	"sort"

	"kchart_go/internal/domain"
)

// SeriesPoint is one (time, value) sample for a render sink.
type SeriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// BarDetail is the per-bar tooltip readout.
type BarDetail struct {
	Time        int64              `json:"time"`
	Date        string             `json:"date"`
	Close       float64            `json:"close"`
	ChangePct   float64            `json:"change_pct"` // vs previous close, vs own open for the first bar
	Limit       domain.LimitStatus `json:"limit_status"`
	BuyVolume   int64              `json:"buy_volume"`
	SellVolume  int64              `json:"sell_volume"`
	TotalVolume int64              `json:"total_volume"`
	Latest      bool               `json:"is_latest"`
}

// ChartView is everything the daily chart renders: the raw bars plus the
// derived price and volume series and per-bar details.
type ChartView struct {
	Bars        []domain.DailyBar `json:"bars"`
	Price       []SeriesPoint     `json:"price"`
	TotalVolume []SeriesPoint     `json:"total_volume"`
	SellVolume  []SeriesPoint     `json:"sell_volume"`
	Details     []BarDetail       `json:"details"`
}

// OrderBookView is the two-sided depth display. Percentages always sum to
// 100, splitting 50/50 when the book is empty.
type OrderBookView struct {
	Buys        []domain.Order `json:"buys"`  // price descending
	Sells       []domain.Order `json:"sells"` // price ascending
	BuyPercent  float64        `json:"buy_percent"`
	SellPercent float64        `json:"sell_percent"`
}

// SummaryView is the header readout for an item.
type SummaryView struct {
	Date        string             `json:"date"`
	LatestPrice float64            `json:"latest_price"`
	ChangePct   float64            `json:"change_pct"`
	Limit       domain.LimitStatus `json:"limit_status"`
}

// ChartView derives the chart projection for an item. volumeScale divides
// the volume series for display (pass 1 for raw units). The bool is false
// when the item is not tracked.
func (r *Reconciler) ChartView(item string, volumeScale float64) (ChartView, bool) {
	if volumeScale == 0 {
		volumeScale = 1
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[item]
	if !ok {
		return ChartView{}, false
	}

	view := ChartView{
		Bars:        make([]domain.DailyBar, len(st.series)),
		Price:       make([]SeriesPoint, 0, len(st.series)),
		TotalVolume: make([]SeriesPoint, 0, len(st.series)),
		SellVolume:  make([]SeriesPoint, 0, len(st.series)),
		Details:     make([]BarDetail, 0, len(st.series)),
	}
	copy(view.Bars, st.series)

	for i, bar := range st.series {
		view.Price = append(view.Price, SeriesPoint{Time: bar.Time, Value: bar.Close})
		view.TotalVolume = append(view.TotalVolume, SeriesPoint{
			Time: bar.Time, Value: float64(bar.TotalVolume()) / volumeScale,
		})
		view.SellVolume = append(view.SellVolume, SeriesPoint{
			Time: bar.Time, Value: float64(bar.SellVolume) / volumeScale,
		})

		reference := bar.Open
		if i > 0 {
			reference = st.series[i-1].Close
		}
		var changePct float64
		if reference != 0 {
			changePct = (bar.Close - reference) / reference * 100
		}

		view.Details = append(view.Details, BarDetail{
			Time:        bar.Time,
			Date:        bar.Date,
			Close:       bar.Close,
			ChangePct:   changePct,
			Limit:       bar.Limit,
			BuyVolume:   bar.BuyVolume,
			SellVolume:  bar.SellVolume,
			TotalVolume: bar.TotalVolume(),
			Latest:      i == len(st.series)-1,
		})
	}
	return view, true
}

// IntradayView returns a copy of the minute-bucketed intraday series.
func (r *Reconciler) IntradayView(item string) ([]domain.IntradayPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[item]
	if !ok {
		return nil, false
	}
	points := make([]domain.IntradayPoint, len(st.intraday))
	copy(points, st.intraday)
	return points, true
}

// TradesView returns the held trades, newest first.
func (r *Reconciler) TradesView(item string) ([]domain.Trade, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[item]
	if !ok {
		return nil, false
	}
	trades := make([]domain.Trade, len(st.trades))
	copy(trades, st.trades)
	return trades, true
}

// OrderBookView derives the depth display from the current snapshot.
func (r *Reconciler) OrderBookView(item string) (OrderBookView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[item]
	if !ok {
		return OrderBookView{}, false
	}

	view := OrderBookView{
		Buys:  make([]domain.Order, 0, len(st.book)),
		Sells: make([]domain.Order, 0, len(st.book)),
	}
	var buyQty, sellQty int64
	for _, o := range st.book {
		switch o.Side {
		case domain.SideBuy:
			view.Buys = append(view.Buys, o)
			buyQty += o.Quantity
		case domain.SideSell:
			view.Sells = append(view.Sells, o)
			sellQty += o.Quantity
		}
	}

	sortOrders(view.Buys, false)
	sortOrders(view.Sells, true)

	total := buyQty + sellQty
	if total == 0 {
		view.BuyPercent, view.SellPercent = 50, 50
	} else {
		view.BuyPercent = float64(buyQty) / float64(total) * 100
		view.SellPercent = 100 - view.BuyPercent
	}
	return view, true
}

// SummaryView derives the header readout from the tail of the daily series.
func (r *Reconciler) SummaryView(item string) (SummaryView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[item]
	if !ok || len(st.series) == 0 {
		return SummaryView{}, false
	}

	last := st.series[len(st.series)-1]
	reference := last.Open
	if n := len(st.series); n > 1 {
		reference = st.series[n-2].Close
	}
	var changePct float64
	if reference != 0 {
		changePct = (last.Close - reference) / reference * 100
	}

	return SummaryView{
		Date:        last.Date,
		LatestPrice: last.Close,
		ChangePct:   changePct,
		Limit:       last.Limit,
	}, true
}

// sortOrders orders a book side by price, keeping equal-price entries in
// snapshot order.
func sortOrders(orders []domain.Order, ascending bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		if ascending {
			return orders[i].Price < orders[j].Price
		}
		return orders[i].Price > orders[j].Price
	})
}
