package event

import (
	"kchart_go/internal/domain"
)

// Type defines the kind of reconciler update.
type Type uint16

const (
	EvHistoricalWindow Type = iota + 1
	EvIntradayUpdate
	EvLastBarTick
	EvTradeBatch
	EvOrderBookSnapshot
	EvForget
)

func (t Type) String() string {
	switch t {
	case EvHistoricalWindow:
		return "historical_window"
	case EvIntradayUpdate:
		return "intraday_update"
	case EvLastBarTick:
		return "last_bar_tick"
	case EvTradeBatch:
		return "trade_batch"
	case EvOrderBookSnapshot:
		return "orderbook_snapshot"
	case EvForget:
		return "forget"
	default:
		return "unknown"
	}
}

// Event is the interface for all reconciler inbox events. Whether an update
// arrived via poll or push is invisible past this point.
type Event interface {
	GetItem() string
	GetType() Type
}

// BaseEvent carries the item the update belongs to.
type BaseEvent struct {
	Item string `json:"item"`
}

func (e BaseEvent) GetItem() string { return e.Item }

// HistoricalWindowEvent replaces the daily series wholesale with a freshly
// fetched window.
type HistoricalWindowEvent struct {
	BaseEvent
	Bars []domain.DailyBar `json:"bars"`
}

func (HistoricalWindowEvent) GetType() Type { return EvHistoricalWindow }

// IntradayUpdateEvent is a sub-minute tick destined for the minute-bucketed
// intraday buffer. High-frequency; use the pool.
type IntradayUpdateEvent struct {
	BaseEvent
	Update domain.IntradayUpdate `json:"update"`
}

func (IntradayUpdateEvent) GetType() Type { return EvIntradayUpdate }

// LastBarTickEvent carries the current trading day's summary row. It mutates
// the rightmost bar in place, or appends when the date rolls over.
type LastBarTickEvent struct {
	BaseEvent
	Bar domain.DailyBar `json:"bar"`
}

func (LastBarTickEvent) GetType() Type { return EvLastBarTick }

// TradeBatchEvent merges a page of executed trades into the ticker list.
type TradeBatchEvent struct {
	BaseEvent
	Trades []domain.Trade `json:"trades"`
}

func (TradeBatchEvent) GetType() Type { return EvTradeBatch }

// OrderBookSnapshotEvent replaces the order book. The upstream book is a
// full snapshot, never a delta.
type OrderBookSnapshotEvent struct {
	BaseEvent
	Orders []domain.Order `json:"orders"`
}

func (OrderBookSnapshotEvent) GetType() Type { return EvOrderBookSnapshot }

// ForgetEvent drops every held view of an item. It travels through the same
// inbox as data events, so updates queued before the drop can never
// resurrect the item afterwards. Done, when set, is closed once the drop has
// been applied.
type ForgetEvent struct {
	BaseEvent
	Done chan struct{} `json:"-"`
}

func (ForgetEvent) GetType() Type { return EvForget }
