package event

import (
	"sync"

	"kchart_go/internal/domain"
)

// intradayPool recycles IntradayUpdateEvent allocations. The intraday feed is
// the only high-frequency producer; everything else allocates normally.
var intradayPool = sync.Pool{
	New: func() any {
		return &IntradayUpdateEvent{}
	},
}

// AcquireIntradayUpdateEvent fetches a zeroed event from the pool.
func AcquireIntradayUpdateEvent() *IntradayUpdateEvent {
	return intradayPool.Get().(*IntradayUpdateEvent)
}

// ReleaseIntradayUpdateEvent resets and returns an event to the pool.
// The caller must not touch the event afterwards.
func ReleaseIntradayUpdateEvent(ev *IntradayUpdateEvent) {
	ev.Item = ""
	ev.Update = domain.IntradayUpdate{}
	intradayPool.Put(ev)
}

// Warmup pre-populates the pool so the first ticks don't allocate.
func Warmup() {
	events := make([]*IntradayUpdateEvent, 0, 32)
	for i := 0; i < 32; i++ {
		events = append(events, AcquireIntradayUpdateEvent())
	}
	for _, ev := range events {
		ReleaseIntradayUpdateEvent(ev)
	}
}
