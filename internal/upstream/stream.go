package upstream

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"kchart_go/internal/infra"
)

// subscribeRequest is the first frame sent after every (re)connect.
type subscribeRequest struct {
	Op     string `json:"op"`
	ItemID string `json:"item_id"`
}

// IntradayStream subscribes to the intraday push channel for one item and
// forwards each raw tick to onTick. The embedded worker owns reconnection;
// the stream resubscribes on every OnConnect, so a dropped connection costs
// at most the ticks missed while offline.
type IntradayStream struct {
	wsURL  string
	itemID string
	onTick func(itemID string, p *IntradayPayload)
	worker *infra.BaseWSWorker
}

// NewIntradayStream creates a stream for one item. onTick runs on the read
// goroutine and must not block.
func NewIntradayStream(wsURL, itemID string, onTick func(itemID string, p *IntradayPayload)) *IntradayStream {
	s := &IntradayStream{
		wsURL:  wsURL,
		itemID: itemID,
		onTick: onTick,
	}
	s.worker = infra.NewBaseWSWorker(s)
	return s
}

// Start begins the connect/read loop.
func (s *IntradayStream) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

// Stop tears the stream down and waits for the read loop to exit.
func (s *IntradayStream) Stop() {
	s.worker.Stop()
}

func (s *IntradayStream) GetURL() string { return s.wsURL }

func (s *IntradayStream) ID() string { return "intraday-" + s.itemID }

func (s *IntradayStream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	req, err := json.Marshal(subscribeRequest{Op: "subscribe", ItemID: s.itemID})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, req)
}

func (s *IntradayStream) OnMessage(ctx context.Context, msg []byte) {
	var payload IntradayPayload
	if err := json.Unmarshal(msg, &payload); err != nil {
		slog.Warn("Intraday frame dropped", "id", s.ID(), "err", err)
		return
	}
	s.onTick(s.itemID, &payload)
}

func (s *IntradayStream) OnClose(ctx context.Context) {
	slog.Debug("Intraday stream disconnected", "id", s.ID())
}

func (s *IntradayStream) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.PingMessage, nil)
}
