package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"kchart_go/internal/domain"
	"kchart_go/internal/event"
	"kchart_go/internal/storage"
	"kchart_go/pkg/clock"
)

// itemState is the canonical in-memory state for one tracked item.
type itemState struct {
	series   []domain.DailyBar      // ascending by day
	intraday []domain.IntradayPoint // ascending by clock, capped
	trades   []domain.Trade         // descending by timestamp, capped
	book     []domain.Order
}

// MarshalJSON exposes the unexported state for DumpState output.
func (st *itemState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Series   []domain.DailyBar      `json:"series"`
		Intraday []domain.IntradayPoint `json:"intraday"`
		Trades   []domain.Trade         `json:"trades"`
		Book     []domain.Order         `json:"book"`
	}{st.series, st.intraday, st.trades, st.book})
}

// Reconciler is the single-threaded core that merges every update source
// into one consistent state per item. All mutation happens on the Run
// goroutine; views take copies under a read lock.
type Reconciler struct {
	inbox   chan event.Event
	items   map[string]*itemState
	journal storage.Journal

	// Boundary: notifies the render sink (WS hub, UI) of state changes.
	onUpdate func(item string, kind event.Type)

	mu sync.RWMutex // guards items for external reads
}

// NewReconciler creates a reconciler. journal may be nil to disable
// recording; onUpdate may be nil when nothing listens for changes.
func NewReconciler(inboxSize int, journal storage.Journal, onUpdate func(item string, kind event.Type)) *Reconciler {
	return &Reconciler{
		inbox:    make(chan event.Event, inboxSize),
		items:    make(map[string]*itemState),
		journal:  journal,
		onUpdate: onUpdate,
	}
}

// Inbox returns the event channel. Refresh jobs and the push stream send
// events here.
func (r *Reconciler) Inbox() chan<- event.Event {
	return r.inbox
}

// Run starts the main merge loop. This MUST be run in a single goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("Reconciler started (single-thread merge loop)")

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", rec))
			r.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", rec))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciler stopping...")
			return
		case ev := <-r.inbox:
			r.processEvent(ctx, ev)
		}
	}
}

func (r *Reconciler) processEvent(ctx context.Context, ev event.Event) {
	if r.journal != nil {
		// Recording is advisory. A journal error never blocks the merge.
		if err := r.journal.Record(ctx, ev); err != nil {
			slog.Warn("Journal write failed", slog.Any("error", err))
		}
	}

	r.Apply(ev)

	if pooled, ok := ev.(*event.IntradayUpdateEvent); ok {
		event.ReleaseIntradayUpdateEvent(pooled)
	}
}

// Apply merges one event into the canonical state synchronously. The replay
// tool drives this directly; the live path goes through Run.
func (r *Reconciler) Apply(ev event.Event) {
	item := ev.GetItem()

	// A forget must not pass through the auto-create below: it removes the
	// item and acknowledges, nothing more.
	if f, isForget := ev.(*event.ForgetEvent); isForget {
		r.mu.Lock()
		delete(r.items, item)
		r.mu.Unlock()
		if f.Done != nil {
			close(f.Done)
		}
		if r.onUpdate != nil {
			r.onUpdate(item, f.GetType())
		}
		return
	}

	r.mu.Lock()
	st, ok := r.items[item]
	if !ok {
		st = &itemState{}
		r.items[item] = st
	}

	switch e := ev.(type) {
	case *event.HistoricalWindowEvent:
		st.applyHistoricalWindow(e.Bars)
	case *event.IntradayUpdateEvent:
		st.applyIntradayUpdate(e.Update)
	case *event.LastBarTickEvent:
		st.applyLastBarTick(e.Bar)
	case *event.TradeBatchEvent:
		st.mergeTradeBatch(e.Trades)
	case *event.OrderBookSnapshotEvent:
		st.reconcileOrderBook(e.Orders)
	default:
		r.mu.Unlock()
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return
	}
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(item, ev.GetType())
	}
}

// applyHistoricalWindow replaces the daily series wholesale. The incoming
// window wins over anything already held, including a live last bar.
func (st *itemState) applyHistoricalWindow(bars []domain.DailyBar) {
	series := make([]domain.DailyBar, len(bars))
	copy(series, bars)

	sort.Slice(series, func(i, j int) bool { return series[i].Time < series[j].Time })

	// Collapse duplicate days, last write wins.
	dedup := series[:0]
	for _, bar := range series {
		if n := len(dedup); n > 0 && dedup[n-1].Time == bar.Time {
			dedup[n-1] = bar
			continue
		}
		dedup = append(dedup, bar)
	}

	for i := range dedup {
		dedup[i].Limit = domain.ComputeLimitStatus(dedup[i].Open, dedup[i].Close)
	}
	st.series = dedup
}

// applyIntradayUpdate upserts one tick into the minute-bucketed intraday
// series. A tick in the same minute as the tail point overwrites price and
// clock and accumulates its volume deltas; a new minute appends a point.
func (st *itemState) applyIntradayUpdate(upd domain.IntradayUpdate) {
	var dayOpen float64
	if n := len(st.series); n > 0 {
		dayOpen = st.series[n-1].Open
	}
	limit := domain.ComputeLimitStatus(dayOpen, upd.Price)

	n := len(st.intraday)
	if n > 0 && clock.SameMinute(st.intraday[n-1].Clock, upd.Clock) {
		point := st.intraday[n-1]
		point.Clock = upd.Clock
		point.Price = upd.Price
		point.Limit = limit
		point.BuyVolume += upd.BuyDelta
		point.SellVolume += upd.SellDelta
		st.intraday[n-1] = point
	} else {
		st.intraday = append(st.intraday, domain.IntradayPoint{
			Clock:      upd.Clock,
			Price:      upd.Price,
			Limit:      limit,
			BuyVolume:  upd.BuyDelta,
			SellVolume: upd.SellDelta,
		})
	}

	if len(st.intraday) > domain.IntradayCap {
		st.intraday = st.intraday[len(st.intraday)-domain.IntradayCap:]
	}
}

// applyLastBarTick merges a fresh reading of the current day. Same day
// replaces the tail bar; a strictly newer day appends; a stale older day is
// dropped.
func (st *itemState) applyLastBarTick(bar domain.DailyBar) {
	bar.Limit = domain.ComputeLimitStatus(bar.Open, bar.Close)

	n := len(st.series)
	if n == 0 {
		st.series = append(st.series, bar)
		return
	}

	last := st.series[n-1]
	switch {
	case bar.Date == last.Date:
		st.series[n-1] = bar
	case bar.Time > last.Time:
		st.series = append(st.series, bar)
	default:
		slog.Debug("Stale last-bar tick dropped",
			slog.String("tick_date", bar.Date),
			slog.String("tail_date", last.Date))
	}
}

// mergeTradeBatch unions the incoming page with the held trades, keyed by
// timestamp. Re-merging the same page is a no-op; on a key collision the
// incoming trade wins. The result is descending by timestamp and capped.
func (st *itemState) mergeTradeBatch(trades []domain.Trade) {
	merged := make(map[int64]domain.Trade, len(st.trades)+len(trades))
	for _, t := range st.trades {
		merged[t.Timestamp] = t
	}
	for _, t := range trades {
		merged[t.Timestamp] = t
	}

	out := make([]domain.Trade, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })

	if len(out) > domain.TradeCap {
		out = out[:domain.TradeCap]
	}
	st.trades = out
}

// reconcileOrderBook replaces the resting-order multiset wholesale. The
// snapshot is authoritative; there is no per-order diffing.
func (st *itemState) reconcileOrderBook(orders []domain.Order) {
	book := make([]domain.Order, len(orders))
	copy(book, orders)
	st.book = book
}

// Items returns the tracked item ids.
func (r *Reconciler) Items() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether an item is tracked.
func (r *Reconciler) Has(item string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[item]
	return ok
}

// Forget drops all state for an item and blocks until the drop has been
// applied. The drop is sequenced through the inbox behind any updates
// already queued for the item, so a released item cannot be resurrected by
// a stale event. Requires the Run loop to be active.
func (r *Reconciler) Forget(item string) {
	done := make(chan struct{})
	r.inbox <- &event.ForgetEvent{BaseEvent: event.BaseEvent{Item: item}, Done: done}
	<-done
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (r *Reconciler) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	r.mu.RLock()
	data := struct {
		Items map[string]*itemState `json:"items"`
	}{Items: r.items}
	b, err := json.MarshalIndent(data, "", "  ")
	r.mu.RUnlock()

	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
