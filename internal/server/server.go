// Package server exposes the reconciled state over HTTP for the dashboard
// frontend: one read-only JSON route per view, plus a WebSocket channel that
// announces which views changed.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kchart_go/internal/engine"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server serves dashboard views from the reconciler.
type Server struct {
	cfg    Config
	recon  *engine.Reconciler
	hub    *Hub
	router *gin.Engine
	http   *http.Server
}

// New wires the routes. hub may be nil when push notifications are unused.
func New(cfg Config, recon *engine.Reconciler, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	s := &Server{cfg: cfg, recon: recon, hub: hub, router: router}

	api := router.Group("/api/v1")
	api.GET("/items", s.listItems)
	api.GET("/items/:id/chart", s.getChart)
	api.GET("/items/:id/intraday", s.getIntraday)
	api.GET("/items/:id/orderbook", s.getOrderBook)
	api.GET("/items/:id/trades", s.getTrades)
	api.GET("/items/:id/summary", s.getSummary)
	if hub != nil {
		router.GET("/ws", func(c *gin.Context) { hub.Serve(c.Writer, c.Request) })
	}

	return s
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{Addr: s.cfg.Addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", s.cfg.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) listItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.recon.Items()})
}

func (s *Server) getChart(c *gin.Context) {
	scale := 1.0
	if raw := c.Query("volume_scale"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid volume_scale"})
			return
		}
		scale = parsed
	}

	view, ok := s.recon.ChartView(c.Param("id"), scale)
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getIntraday(c *gin.Context) {
	points, ok := s.recon.IntradayView(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (s *Server) getOrderBook(c *gin.Context) {
	view, ok := s.recon.OrderBookView(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getTrades(c *gin.Context) {
	trades, ok := s.recon.TradesView(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getSummary(c *gin.Context) {
	view, ok := s.recon.SummaryView(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
}
