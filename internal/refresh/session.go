package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kchart_go/internal/domain"
	"kchart_go/internal/event"
	"kchart_go/internal/transform"
	"kchart_go/internal/upstream"
)

// Fetcher is the slice of the upstream client a session needs.
type Fetcher interface {
	OrderBook(ctx context.Context, itemID string) (*upstream.OrderBookPayload, error)
	TradeHistory(ctx context.Context, itemID string, page int) (*upstream.TradeHistoryPayload, error)
	TradeSummary(ctx context.Context, itemID string, limitDays int) (*upstream.TradeSummaryPayload, error)
}

// Options configures a session. Zero intervals fall back to defaults.
type Options struct {
	Fetcher      Fetcher
	Inbox        chan<- event.Event
	WSURL        string // empty disables the push stream
	HistoryDays  int
	FallbackSide domain.Side

	SummaryInterval   time.Duration
	TradesInterval    time.Duration
	OrderBookInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.HistoryDays <= 0 {
		o.HistoryDays = 29
	}
	if !o.FallbackSide.Valid() {
		o.FallbackSide = domain.SideBuy
	}
	if o.SummaryInterval <= 0 {
		o.SummaryInterval = 5 * time.Second
	}
	if o.TradesInterval <= 0 {
		o.TradesInterval = 2 * time.Second
	}
	if o.OrderBookInterval <= 0 {
		o.OrderBookInterval = 5 * time.Second
	}
}

// Session keeps one item fresh: a blocking historical load on start, then
// periodic refresh jobs and, when a push URL is configured, the intraday
// stream. Refresh failures are logged and the previous state stands.
type Session struct {
	itemID string
	opts   Options

	cron   *cron.Cron
	stream *upstream.IntradayStream
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session for one item. Call Start to begin.
func NewSession(itemID string, opts Options) *Session {
	opts.applyDefaults()
	return &Session{itemID: itemID, opts: opts}
}

// Start performs the initial historical load, then schedules the refresh
// jobs. A failed initial load aborts the session: without history there is
// nothing consistent to show.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.loadHistory(s.ctx); err != nil {
		s.cancel()
		return fmt.Errorf("initial load for item %s: %w", s.itemID, err)
	}

	// Prime the side panels; failures here are the same as a missed refresh.
	s.refreshTrades(s.ctx)
	s.refreshOrderBook(s.ctx)

	s.cron = cron.New()
	jobs := []struct {
		every time.Duration
		run   func(context.Context)
	}{
		{s.opts.SummaryInterval, s.refreshSummary},
		{s.opts.TradesInterval, s.refreshTrades},
		{s.opts.OrderBookInterval, s.refreshOrderBook},
	}
	for _, job := range jobs {
		run := job.run
		spec := fmt.Sprintf("@every %s", job.every)
		if _, err := s.cron.AddFunc(spec, func() { run(s.ctx) }); err != nil {
			s.cancel()
			return fmt.Errorf("schedule %q: %w", spec, err)
		}
	}
	s.cron.Start()

	if s.opts.WSURL != "" {
		s.stream = upstream.NewIntradayStream(s.opts.WSURL, s.itemID, s.onTick)
		s.stream.Start(s.ctx)
	}

	slog.Info("Session started", slog.String("item", s.itemID))
	return nil
}

// Stop tears the session down and waits for in-flight jobs to finish.
// After Stop returns, no further events for this item enter the inbox.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream != nil {
		s.stream.Stop()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	slog.Info("Session stopped", slog.String("item", s.itemID))
}

func (s *Session) loadHistory(ctx context.Context) error {
	payload, err := s.opts.Fetcher.TradeSummary(ctx, s.itemID, s.opts.HistoryDays)
	if err != nil {
		return err
	}

	s.send(ctx, &event.HistoricalWindowEvent{
		BaseEvent: event.BaseEvent{Item: s.itemID},
		Bars:      transform.DailyBars(payload),
	})
	return nil
}

// refreshSummary re-reads the current trading day and merges it as a
// last-bar tick.
func (s *Session) refreshSummary(ctx context.Context) {
	payload, err := s.opts.Fetcher.TradeSummary(ctx, s.itemID, 1)
	if err != nil {
		s.logRefreshFailure("summary", err)
		return
	}

	bars := transform.DailyBars(payload)
	if len(bars) == 0 {
		return
	}
	s.send(ctx, &event.LastBarTickEvent{
		BaseEvent: event.BaseEvent{Item: s.itemID},
		Bar:       bars[len(bars)-1],
	})
}

func (s *Session) refreshTrades(ctx context.Context) {
	payload, err := s.opts.Fetcher.TradeHistory(ctx, s.itemID, 1)
	if err != nil {
		s.logRefreshFailure("trades", err)
		return
	}

	s.send(ctx, &event.TradeBatchEvent{
		BaseEvent: event.BaseEvent{Item: s.itemID},
		Trades:    transform.Trades(payload, s.opts.FallbackSide),
	})
}

func (s *Session) refreshOrderBook(ctx context.Context) {
	payload, err := s.opts.Fetcher.OrderBook(ctx, s.itemID)
	if err != nil {
		s.logRefreshFailure("order-book", err)
		return
	}

	s.send(ctx, &event.OrderBookSnapshotEvent{
		BaseEvent: event.BaseEvent{Item: s.itemID},
		Orders:    transform.Orders(payload),
	})
}

// onTick runs on the stream's read goroutine.
func (s *Session) onTick(itemID string, p *upstream.IntradayPayload) {
	upd, ok := transform.IntradayUpdate(p)
	if !ok {
		slog.Warn("Intraday tick dropped", slog.String("item", itemID), slog.String("time", p.Time))
		return
	}

	ev := event.AcquireIntradayUpdateEvent()
	ev.Item = itemID
	ev.Update = upd
	s.send(s.ctx, ev)
}

func (s *Session) send(ctx context.Context, ev event.Event) {
	select {
	case s.opts.Inbox <- ev:
	case <-ctx.Done():
		// The event never reaches the merge loop, so pooled ones go back
		// here instead.
		if pooled, ok := ev.(*event.IntradayUpdateEvent); ok {
			event.ReleaseIntradayUpdateEvent(pooled)
		}
	}
}

func (s *Session) logRefreshFailure(job string, err error) {
	if s.ctx.Err() != nil {
		return // shutdown, not a failure
	}
	slog.Warn("Refresh failed, keeping previous state",
		slog.String("item", s.itemID),
		slog.String("job", job),
		slog.Any("error", err))
}
