package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kchart_go/internal/app"
	"kchart_go/internal/upstream"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The merge loop owns all state mutation. Single goroutine, by contract.
	go bootstrap.Reconciler.Run(ctx)

	for _, item := range bootstrap.Config.Upstream.Items {
		if err := bootstrap.Manager.Track(ctx, item); err != nil {
			if upstream.IsNotFound(err) {
				slog.Error("Item does not exist upstream", slog.String("item", item))
				os.Exit(1)
			}
			slog.Error("Failed to start item session", slog.String("item", item), slog.Any("error", err))
			os.Exit(1)
		}
	}

	slog.Info("Dashboard operational. Press Ctrl+C to exit.")

	if err := bootstrap.Server.Run(ctx); err != nil {
		slog.Error("HTTP server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Shutting down gracefully...")
}
