// Package replay rebuilds reconciler state from a recorded update journal.
// Because the reconciler's merge is deterministic, replaying a session
// reproduces the exact state the dashboard showed when it was recorded.
package replay

import (
	"context"
	"fmt"
	"log/slog"

	"kchart_go/internal/engine"
	"kchart_go/internal/event"
	"kchart_go/internal/storage"
)

// Replayer reads a journal and feeds it into a reconciler.
type Replayer struct {
	journal *storage.SQLiteJournal
}

// NewReplayer opens the journal at dbPath.
func NewReplayer(dbPath string) (*Replayer, error) {
	journal, err := storage.NewSQLiteJournal(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Replayer{journal: journal}, nil
}

// Run applies every recorded update, in order, synchronously.
func (r *Replayer) Run(ctx context.Context, recon *engine.Reconciler) error {
	count := 0
	err := r.journal.Replay(ctx, func(ev event.Event) error {
		recon.Apply(ev)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Replay finished", slog.Int("updates", count))
	return nil
}

// Close releases the journal.
func (r *Replayer) Close() error {
	return r.journal.Close()
}
