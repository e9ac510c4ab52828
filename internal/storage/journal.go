package storage

import (
	"context"

	"kchart_go/internal/event"
)

// Journal records every update applied to the canonical state, so a session
// can be replayed through the reconciler after the fact. Recording is a dev
// and post-mortem aid, not a durability guarantee.
type Journal interface {
	Record(ctx context.Context, ev event.Event) error
	Close() error
}

// NopJournal discards everything. Used when recording is disabled.
type NopJournal struct{}

// NewNopJournal creates a no-op journal.
func NewNopJournal() *NopJournal { return &NopJournal{} }

func (*NopJournal) Record(context.Context, event.Event) error { return nil }
func (*NopJournal) Close() error                              { return nil }
