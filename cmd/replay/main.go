package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"kchart_go/internal/engine"
	"kchart_go/replay"
)

// replay rebuilds state from a recorded journal and prints the resulting
// views, one item per line.
func main() {
	dbPath := flag.String("journal", "journal.db", "path to the update journal")
	flag.Parse()

	replayer, err := replay.NewReplayer(*dbPath)
	if err != nil {
		slog.Error("Failed to open journal", slog.Any("error", err))
		os.Exit(1)
	}
	defer replayer.Close()

	recon := engine.NewReconciler(1, nil, nil)
	if err := replayer.Run(context.Background(), recon); err != nil {
		slog.Error("Replay failed", slog.Any("error", err))
		os.Exit(1)
	}

	for _, item := range recon.Items() {
		summary, ok := recon.SummaryView(item)
		if !ok {
			fmt.Printf("%s: no daily series recorded\n", item)
			continue
		}
		out, _ := json.Marshal(summary)
		fmt.Printf("%s: %s\n", item, out)
	}
}
