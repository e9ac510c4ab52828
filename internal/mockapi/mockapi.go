// Package mockapi is a self-contained stand-in for the upstream market-data
// API. It serves the same envelope and payload shapes from a seeded random
// walk, so the dashboard can be developed and demoed without credentials.
package mockapi

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kchart_go/pkg/clock"
)

// Config controls the simulated market.
type Config struct {
	Items      []string
	StartPrice float64
	Seed       int64
	// TickInterval paces the intraday push channel.
	TickInterval time.Duration
}

const (
	historyDays = 29
	maxTrades   = 50
	bookDepth   = 8
	walkStepPct = 0.6 // max per-tick move in percent
)

type itemMarket struct {
	mu      sync.Mutex
	rng     *rand.Rand
	dayOpen float64
	price   float64
	summary []summaryRow
	trades  []tradeRow
}

type summaryRow struct {
	Date             string `json:"date"`
	ClosePrice       string `json:"close_price"`
	LatestTradePrice string `json:"latest_trade_price"`
	PriceChangeRate  string `json:"price_change_rate"`
	BuyAmount        string `json:"buy_amount"`
	SellAmount       string `json:"sell_amount"`
}

type tradeRow struct {
	OrderID   string `json:"order_id"`
	TradeTime string `json:"trade_time"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Side      string `json:"side"`
}

type orderRow struct {
	OrderID string `json:"order_id"`
	Price   string `json:"price"`
	Amount  string `json:"amount"`
}

// MockAPI simulates the upstream REST and push surfaces.
type MockAPI struct {
	cfg     Config
	markets map[string]*itemMarket
	router  *gin.Engine
}

// New builds the simulator and its routes.
func New(cfg Config) *MockAPI {
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if len(cfg.Items) == 0 {
		cfg.Items = []string{"1"}
	}

	m := &MockAPI{cfg: cfg, markets: make(map[string]*itemMarket)}
	for i, item := range cfg.Items {
		m.markets[item] = newItemMarket(cfg.Seed+int64(i), cfg.StartPrice)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1/match")
	v1.GET("/order-book/:id", m.orderBook)
	v1.GET("/trade-history/:id", m.tradeHistory)
	v1.GET("/trade-summary/:id", m.tradeSummary)
	router.GET("/v1/match/intraday", m.intradayWS)

	m.router = router
	return m
}

// Handler returns the HTTP handler, for embedding in a server or a test.
func (m *MockAPI) Handler() http.Handler { return m.router }

func newItemMarket(seed int64, startPrice float64) *itemMarket {
	rng := rand.New(rand.NewSource(seed))
	im := &itemMarket{rng: rng, price: startPrice}

	// Walk backwards to fabricate the history window.
	price := startPrice
	today := time.Now().UTC()
	rows := make([]summaryRow, 0, historyDays)
	for i := historyDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		open := price
		price = im.step(price)
		rows = append(rows, summaryRow{
			Date:             day.Format("2006-01-02"),
			ClosePrice:       formatPrice(open),
			LatestTradePrice: formatPrice(price),
			PriceChangeRate:  fmt.Sprintf("%.2f", (price-open)/open*100),
			BuyAmount:        strconv.Itoa(100 + rng.Intn(900)),
			SellAmount:       strconv.Itoa(100 + rng.Intn(900)),
		})
	}
	im.summary = rows
	im.dayOpen = price
	im.price = price

	for i := 0; i < 10; i++ {
		im.appendTrade()
	}
	return im
}

// step advances the random walk by at most walkStepPct percent.
func (im *itemMarket) step(price float64) float64 {
	move := (im.rng.Float64()*2 - 1) * walkStepPct / 100
	next := price * (1 + move)
	if next < 0.01 {
		next = 0.01
	}
	return next
}

func (im *itemMarket) appendTrade() tradeRow {
	im.price = im.step(im.price)
	side := "buy"
	if im.rng.Intn(2) == 1 {
		side = "sell"
	}
	row := tradeRow{
		OrderID:   uuid.NewString(),
		TradeTime: strconv.FormatInt(time.Now().UnixMilli(), 10),
		Price:     formatPrice(im.price),
		Amount:    strconv.Itoa(1 + im.rng.Intn(20)),
		Side:      side,
	}

	im.trades = append([]tradeRow{row}, im.trades...)
	if len(im.trades) > maxTrades {
		im.trades = im.trades[:maxTrades]
	}

	// Keep the current day's summary row in line with the tape.
	if n := len(im.summary); n > 0 {
		im.summary[n-1].LatestTradePrice = row.Price
	}
	return row
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func envelope(data any) gin.H {
	return gin.H{"isSuccess": true, "msg": "", "data": data}
}

func (m *MockAPI) market(c *gin.Context) (*itemMarket, bool) {
	im, ok := m.markets[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"isSuccess": false, "msg": "item not found", "data": nil})
		return nil, false
	}
	return im, true
}

func (m *MockAPI) orderBook(c *gin.Context) {
	im, ok := m.market(c)
	if !ok {
		return
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	buys := make([]orderRow, 0, bookDepth)
	sells := make([]orderRow, 0, bookDepth)
	for i := 1; i <= bookDepth; i++ {
		buys = append(buys, orderRow{
			OrderID: uuid.NewString(),
			Price:   formatPrice(im.price * (1 - float64(i)*0.001)),
			Amount:  strconv.Itoa(1 + im.rng.Intn(50)),
		})
		sells = append(sells, orderRow{
			OrderID: uuid.NewString(),
			Price:   formatPrice(im.price * (1 + float64(i)*0.001)),
			Amount:  strconv.Itoa(1 + im.rng.Intn(50)),
		})
	}

	c.JSON(http.StatusOK, envelope(gin.H{"buy_orders": buys, "sell_orders": sells}))
}

func (m *MockAPI) tradeHistory(c *gin.Context) {
	im, ok := m.market(c)
	if !ok {
		return
	}

	im.mu.Lock()
	// A fresh trade or two per poll keeps the ticker moving.
	for i := 0; i < 1+im.rng.Intn(2); i++ {
		im.appendTrade()
	}
	trades := make([]tradeRow, len(im.trades))
	copy(trades, im.trades)
	im.mu.Unlock()

	c.JSON(http.StatusOK, envelope(gin.H{"trade_history": trades, "total": len(trades)}))
}

func (m *MockAPI) tradeSummary(c *gin.Context) {
	im, ok := m.market(c)
	if !ok {
		return
	}

	limitDays, err := strconv.Atoi(c.DefaultQuery("limit_days", strconv.Itoa(historyDays)))
	if err != nil || limitDays < 1 {
		limitDays = historyDays
	}

	im.mu.Lock()
	rows := im.summary
	if limitDays < len(rows) {
		rows = rows[len(rows)-limitDays:]
	}
	out := make([]summaryRow, len(rows))
	copy(out, rows)
	im.mu.Unlock()

	c.JSON(http.StatusOK, envelope(gin.H{"trade_summary": out}))
}

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

type intradayFrame struct {
	Time       string `json:"time"`
	Price      string `json:"price"`
	BuyVolume  string `json:"buy_volume"`
	SellVolume string `json:"sell_volume"`
}

// intradayWS pushes one simulated tick per interval after the client
// subscribes.
func (m *MockAPI) intradayWS(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var sub struct {
		Op     string `json:"op"`
		ItemID string `json:"item_id"`
	}
	if err := conn.ReadJSON(&sub); err != nil || sub.Op != "subscribe" {
		return
	}
	im, ok := m.markets[sub.ItemID]
	if !ok {
		return
	}

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for range ticker.C {
		im.mu.Lock()
		im.price = im.step(im.price)
		frame := intradayFrame{
			Time:       clock.OfTime(time.Now()),
			Price:      formatPrice(im.price),
			BuyVolume:  strconv.Itoa(im.rng.Intn(10)),
			SellVolume: strconv.Itoa(im.rng.Intn(10)),
		}
		im.mu.Unlock()

		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}
