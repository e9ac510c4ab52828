package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"kchart_go/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	items := flag.String("items", "1", "comma-separated item ids to simulate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	tick := flag.Duration("tick", time.Second, "intraday push interval")
	flag.Parse()

	api := mockapi.New(mockapi.Config{
		Items:        strings.Split(*items, ","),
		Seed:         *seed,
		TickInterval: *tick,
	})

	slog.Info("Mock upstream listening", slog.String("addr", *addr), slog.String("items", *items))
	if err := http.ListenAndServe(*addr, api.Handler()); err != nil {
		slog.Error("Mock upstream failed", slog.Any("error", err))
		os.Exit(1)
	}
}
