package service

import (
	"log"
	"sync"

	"github.com/damjan1996/scanintake/internal/intake/classify"
	"github.com/damjan1996/scanintake/internal/intake/store"
)

// ScanAccepted is delivered on the feed for every persisted scan.
type ScanAccepted struct {
	Event   store.ScanEventRecord
	Payload classify.Payload
}

// ScanFeed is the typed event channel for accepted scans.  Delivery is
// single-subscriber: exactly one consumer ranges over Events, in capture
// order.  Publish is best-effort and never blocks ingestion — when the
// subscriber lags behind the buffer, events are dropped and counted.
type ScanFeed struct {
	logger *log.Logger
	ch     chan ScanAccepted

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

func NewScanFeed(buffer int, logger *log.Logger) *ScanFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &ScanFeed{
		logger: logger,
		ch:     make(chan ScanAccepted, buffer),
	}
}

// Events returns the subscription channel.  It is closed by Close.
func (f *ScanFeed) Events() <-chan ScanAccepted {
	return f.ch
}

// Publish enqueues ev without blocking.  Events published after Close are
// discarded.
func (f *ScanFeed) Publish(ev ScanAccepted) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	select {
	case f.ch <- ev:
	default:
		f.dropped++
		f.logger.Printf("scan feed full, dropped event %s (%d dropped total)", ev.Event.ID, f.dropped)
	}
}

// Dropped returns how many events were discarded because the buffer was
// full.
func (f *ScanFeed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close ends the subscription.  Idempotent.
func (f *ScanFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}
