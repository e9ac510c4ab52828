package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"kchart_go/internal/domain"
	"kchart_go/internal/event"
)

// SQLiteJournal appends every update to a local SQLite file. One writer, WAL
// mode, synchronous=NORMAL: good enough for a replay log.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at path.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal pragma: %w", err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS updates (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		item       TEXT    NOT NULL,
		event_type INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL,
		payload    BLOB    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_updates_item ON updates(item, id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Record appends one update. The payload is the event body without the item
// key, which lives in its own column.
func (j *SQLiteJournal) Record(ctx context.Context, ev event.Event) error {
	payload, err := encodePayload(ev)
	if err != nil {
		return err
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO updates (item, event_type, recorded_at, payload) VALUES (?, ?, ?, ?)",
		ev.GetItem(), int(ev.GetType()), time.Now().UnixMilli(), payload)
	if err != nil {
		return fmt.Errorf("record update: %w", err)
	}
	return nil
}

// Replay streams every recorded update, in insertion order, through fn.
// Replay stops at the first fn error.
func (j *SQLiteJournal) Replay(ctx context.Context, fn func(event.Event) error) error {
	rows, err := j.db.QueryContext(ctx,
		"SELECT item, event_type, payload FROM updates ORDER BY id ASC")
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    string
			evType  int
			payload []byte
		)
		if err := rows.Scan(&item, &evType, &payload); err != nil {
			return fmt.Errorf("scan update: %w", err)
		}

		ev, err := decodePayload(item, event.Type(evType), payload)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close flushes and closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

type historicalWindowPayload struct {
	Bars []domain.DailyBar `json:"bars"`
}

type intradayUpdatePayload struct {
	Update domain.IntradayUpdate `json:"update"`
}

type lastBarTickPayload struct {
	Bar domain.DailyBar `json:"bar"`
}

type tradeBatchPayload struct {
	Trades []domain.Trade `json:"trades"`
}

type orderBookPayload struct {
	Orders []domain.Order `json:"orders"`
}

func encodePayload(ev event.Event) ([]byte, error) {
	var body any
	switch e := ev.(type) {
	case *event.HistoricalWindowEvent:
		body = historicalWindowPayload{Bars: e.Bars}
	case *event.IntradayUpdateEvent:
		body = intradayUpdatePayload{Update: e.Update}
	case *event.LastBarTickEvent:
		body = lastBarTickPayload{Bar: e.Bar}
	case *event.TradeBatchEvent:
		body = tradeBatchPayload{Trades: e.Trades}
	case *event.OrderBookSnapshotEvent:
		body = orderBookPayload{Orders: e.Orders}
	case *event.ForgetEvent:
		body = struct{}{}
	default:
		return nil, fmt.Errorf("journal: unknown event type %v", ev.GetType())
	}
	return json.Marshal(body)
}

func decodePayload(item string, evType event.Type, payload []byte) (event.Event, error) {
	base := event.BaseEvent{Item: item}
	switch evType {
	case event.EvHistoricalWindow:
		var p historicalWindowPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %v: %w", evType, err)
		}
		return &event.HistoricalWindowEvent{BaseEvent: base, Bars: p.Bars}, nil
	case event.EvIntradayUpdate:
		var p intradayUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %v: %w", evType, err)
		}
		return &event.IntradayUpdateEvent{BaseEvent: base, Update: p.Update}, nil
	case event.EvLastBarTick:
		var p lastBarTickPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %v: %w", evType, err)
		}
		return &event.LastBarTickEvent{BaseEvent: base, Bar: p.Bar}, nil
	case event.EvTradeBatch:
		var p tradeBatchPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %v: %w", evType, err)
		}
		return &event.TradeBatchEvent{BaseEvent: base, Trades: p.Trades}, nil
	case event.EvOrderBookSnapshot:
		var p orderBookPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode %v: %w", evType, err)
		}
		return &event.OrderBookSnapshotEvent{BaseEvent: base, Orders: p.Orders}, nil
	case event.EvForget:
		return &event.ForgetEvent{BaseEvent: base}, nil
	default:
		return nil, fmt.Errorf("journal: unknown event type %d", evType)
	}
}
