package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kchart_go/internal/engine"
	"kchart_go/internal/event"
	"kchart_go/internal/infra"
	"kchart_go/internal/refresh"
	"kchart_go/internal/server"
	"kchart_go/internal/storage"
	"kchart_go/internal/upstream"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	Journal    storage.Journal
	Reconciler *engine.Reconciler
	Hub        *server.Hub
	Manager    *refresh.Manager
	Server     *server.Server
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize wires the whole system: config, logging, journal, reconciler,
// refresh sessions, and the HTTP surface. Nothing starts running yet.
func (b *Bootstrap) Initialize() error {
	// Runtime warmup (GC optimization for the tick hotpath)
	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Journal = storage.NewNopJournal()
	if cfg.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0755); err != nil {
			return err
		}
		journal, err := storage.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		b.Journal = journal
		slog.Info("Update journal enabled (WAL-mode)", slog.String("path", cfg.Journal.Path))
	}

	b.Hub = server.NewHub()
	b.Reconciler = engine.NewReconciler(1024, b.Journal, b.Hub.Notify)

	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL:           cfg.Upstream.BaseURL,
		AuthToken:         cfg.Upstream.AuthToken,
		Timeout:           time.Duration(cfg.Upstream.TimeoutSec) * time.Second,
		MaxRequestsPerSec: cfg.Upstream.MaxRequestsPerSec,
	})

	b.Manager = refresh.NewManager(refresh.Options{
		Fetcher:           client,
		Inbox:             b.Reconciler.Inbox(),
		WSURL:             cfg.Upstream.WSURL,
		HistoryDays:       cfg.Upstream.HistoryDays,
		FallbackSide:      cfg.FallbackSide(),
		SummaryInterval:   time.Duration(cfg.Refresh.SummaryIntervalSec) * time.Second,
		TradesInterval:    time.Duration(cfg.Refresh.TradesIntervalSec) * time.Second,
		OrderBookInterval: time.Duration(cfg.Refresh.OrderBookIntervalSec) * time.Second,
	}, b.Reconciler)

	b.Server = server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, b.Reconciler, b.Hub)

	slog.Info("Bootstrap complete",
		slog.String("app", cfg.App.Name),
		slog.Int("items", len(cfg.Upstream.Items)))
	return nil
}

// Shutdown releases everything Initialize acquired.
func (b *Bootstrap) Shutdown() {
	if b.Manager != nil {
		b.Manager.Close()
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("Journal close failed", slog.Any("error", err))
		}
	}
}
