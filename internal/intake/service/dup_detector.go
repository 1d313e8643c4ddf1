package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

// DuplicateSource says which tier of the duplicate check matched.
type DuplicateSource string

const (
	SourceNone  DuplicateSource = "none"
	SourceIndex DuplicateSource = "index"
	SourceStore DuplicateSource = "store"
)

// DuplicateCheck is the outcome of one duplicate lookup.
type DuplicateCheck struct {
	Duplicate bool
	Source    DuplicateSource
	Age       time.Duration
}

// DetectorConfig holds the parameters for NewDuplicateDetector.  Zero
// values fall back to the defaults noted per field.
type DetectorConfig struct {
	// ShortWindow is the in-process fast-path horizon.  Default 5m.
	ShortWindow time.Duration

	// ConfirmWindow is the store-backed horizon that catches repeats
	// across process restarts or index eviction.  Default 10m.
	ConfirmWindow time.Duration

	// Retention is how long index entries are kept before the sweep
	// evicts them.  Default 24h.
	Retention time.Duration

	// SweepInterval is how often the background sweep runs.  Default 1h.
	SweepInterval time.Duration

	// Now overrides the clock.  Tests only.
	Now func() time.Time
}

// DuplicateDetector rejects repeated payloads in two tiers: a process-local
// payload→last-seen index for rapid repeats, and a persistent-store
// confirmation for repeats that outlive the index.  The index is owned by
// the detector instance — constructed with the engine and torn down with
// it — so parallel tests and host reloads each get a fresh one.
//
// A store lookup failure during Check is deliberately treated as "not
// duplicate" (fail-open): a scanner that keeps accepting packages beats
// strict dedup when the database is briefly unreachable.  This is a
// product decision, not an accident; revisit it if dedup ever becomes a
// hard guarantee.
type DuplicateDetector struct {
	scans  store.ScanEventStore
	cfg    DetectorConfig
	logger *log.Logger

	mu   sync.Mutex
	seen map[string]time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewDuplicateDetector(scans store.ScanEventStore, cfg DetectorConfig, logger *log.Logger) *DuplicateDetector {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = 5 * time.Minute
	}
	if cfg.ConfirmWindow <= 0 {
		cfg.ConfirmWindow = 10 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &DuplicateDetector{
		scans:  scans,
		cfg:    cfg,
		logger: logger,
		seen:   make(map[string]time.Time),
		done:   make(chan struct{}),
	}
}

// Check reports whether payload was already seen within the duplicate
// windows.  It does not record the payload; call MarkSeen after the scan
// is accepted.
func (d *DuplicateDetector) Check(ctx context.Context, payload string) DuplicateCheck {
	now := d.cfg.Now()

	d.mu.Lock()
	last, ok := d.seen[payload]
	d.mu.Unlock()

	if ok {
		age := now.Sub(last)
		if age < d.cfg.ShortWindow {
			return DuplicateCheck{Duplicate: true, Source: SourceIndex, Age: age}
		}
	}

	since := now.Add(-d.cfg.ConfirmWindow)
	ev, err := d.scans.FindRecentByPayload(ctx, payload, since)
	if err != nil {
		// Fail-open: availability over strict dedup.
		d.logger.Printf("duplicate confirm lookup failed, accepting payload: %v", err)
		return DuplicateCheck{Source: SourceNone}
	}
	if ev != nil {
		// Backfill the index so the next repeat takes the fast path.
		d.mu.Lock()
		d.seen[payload] = ev.CapturedAt
		d.mu.Unlock()
		return DuplicateCheck{Duplicate: true, Source: SourceStore, Age: now.Sub(ev.CapturedAt)}
	}

	return DuplicateCheck{Source: SourceNone}
}

// MarkSeen stamps the payload with the current time, first sighting
// included.
func (d *DuplicateDetector) MarkSeen(payload string) {
	now := d.cfg.Now()
	d.mu.Lock()
	d.seen[payload] = now
	d.mu.Unlock()
}

// Reset clears the in-process index.
func (d *DuplicateDetector) Reset() {
	d.mu.Lock()
	d.seen = make(map[string]time.Time)
	d.mu.Unlock()
}

// Len returns the number of indexed payloads.
func (d *DuplicateDetector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Start begins the background eviction sweep.  The loop exits when ctx is
// cancelled or Stop is called.
func (d *DuplicateDetector) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	go d.loop(ctx)

	d.logger.Printf("duplicate index sweep started (retention=%s, interval=%s)",
		d.cfg.Retention, d.cfg.SweepInterval)
}

// Stop signals the sweep to exit and waits for it to finish.
func (d *DuplicateDetector) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
}

func (d *DuplicateDetector) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

// sweep evicts index entries older than the retention horizon.  Eviction
// is periodic rather than per-call so Check stays a plain map lookup.
func (d *DuplicateDetector) sweep() {
	cutoff := d.cfg.Now().Add(-d.cfg.Retention)

	d.mu.Lock()
	evicted := 0
	for payload, last := range d.seen {
		if last.Before(cutoff) {
			delete(d.seen, payload)
			evicted++
		}
	}
	remaining := len(d.seen)
	d.mu.Unlock()

	if evicted > 0 {
		d.logger.Printf("duplicate index sweep: evicted %d entries, %d remaining", evicted, remaining)
	}
}
