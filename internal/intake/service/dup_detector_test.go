package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
	"github.com/damjan1996/scanintake/internal/intake/store/memory"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingScanStore simulates an unreachable persistent store.
type failingScanStore struct{}

func (failingScanStore) Insert(context.Context, store.ScanEventRecord) error {
	return errors.New("store down")
}

func (failingScanStore) FindRecentByPayload(context.Context, string, time.Time) (*store.ScanEventRecord, error) {
	return nil, errors.New("store down")
}

func newTestDetector(scans store.ScanEventStore, clock *fakeClock) *DuplicateDetector {
	return NewDuplicateDetector(scans, DetectorConfig{
		ShortWindow:   5 * time.Minute,
		ConfirmWindow: 10 * time.Minute,
		Retention:     24 * time.Hour,
		Now:           clock.Now,
	}, log.New(io.Discard, "", 0))
}

func TestCheck_FirstSighting_NotDuplicate(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(memory.NewScanEventStore(), clock)

	check := d.Check(context.Background(), "PKG001")
	if check.Duplicate {
		t.Error("first sighting must not be duplicate")
	}
	if check.Source != SourceNone {
		t.Errorf("expected source none, got %s", check.Source)
	}
}

func TestCheck_WithinShortWindow_IndexHit(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(memory.NewScanEventStore(), clock)

	d.MarkSeen("PKG001")
	clock.Advance(2 * time.Minute)

	check := d.Check(context.Background(), "PKG001")
	if !check.Duplicate {
		t.Fatal("expected duplicate within short window")
	}
	if check.Source != SourceIndex {
		t.Errorf("expected source index, got %s", check.Source)
	}
	if check.Age != 2*time.Minute {
		t.Errorf("expected age 2m, got %s", check.Age)
	}
}

func TestCheck_AfterShortWindow_StoreConfirms(t *testing.T) {
	clock := newFakeClock()
	scans := memory.NewScanEventStore()
	d := newTestDetector(scans, clock)
	ctx := context.Background()

	captured := clock.Now()
	if err := scans.Insert(ctx, store.ScanEventRecord{
		ID: "ev-1", SessionID: "s-1", RawPayload: "PKG001",
		CapturedAt: captured, Valid: true,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	d.MarkSeen("PKG001")

	// Past the short window, inside the confirmation window.
	clock.Advance(7 * time.Minute)

	check := d.Check(ctx, "PKG001")
	if !check.Duplicate {
		t.Fatal("expected store-confirmed duplicate")
	}
	if check.Source != SourceStore {
		t.Errorf("expected source store, got %s", check.Source)
	}
	if check.Age != 7*time.Minute {
		t.Errorf("expected age 7m, got %s", check.Age)
	}
}

func TestCheck_StoreHit_BackfillsIndex(t *testing.T) {
	clock := newFakeClock()
	scans := memory.NewScanEventStore()
	d := newTestDetector(scans, clock)
	ctx := context.Background()

	if err := scans.Insert(ctx, store.ScanEventRecord{
		ID: "ev-1", SessionID: "s-1", RawPayload: "PKG001",
		CapturedAt: clock.Now(), Valid: true,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Index is empty (simulates a restart); the first check goes to the
	// store, the second must hit the backfilled index... once within the
	// short window of the stored timestamp.
	clock.Advance(3 * time.Minute)
	if check := d.Check(ctx, "PKG001"); check.Source != SourceStore {
		t.Fatalf("expected store source on cold index, got %s", check.Source)
	}
	if check := d.Check(ctx, "PKG001"); check.Source != SourceIndex {
		t.Errorf("expected index source after backfill, got %s", check.Source)
	}
}

func TestCheck_AfterBothWindows_NotDuplicate(t *testing.T) {
	clock := newFakeClock()
	scans := memory.NewScanEventStore()
	d := newTestDetector(scans, clock)
	ctx := context.Background()

	if err := scans.Insert(ctx, store.ScanEventRecord{
		ID: "ev-1", SessionID: "s-1", RawPayload: "PKG001",
		CapturedAt: clock.Now(), Valid: true,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	d.MarkSeen("PKG001")

	clock.Advance(11 * time.Minute)

	check := d.Check(ctx, "PKG001")
	if check.Duplicate {
		t.Errorf("expected no duplicate after both windows, got source=%s", check.Source)
	}
}

func TestCheck_InvalidEventsIgnored(t *testing.T) {
	clock := newFakeClock()
	scans := memory.NewScanEventStore()
	d := newTestDetector(scans, clock)
	ctx := context.Background()

	if err := scans.Insert(ctx, store.ScanEventRecord{
		ID: "ev-1", SessionID: "s-1", RawPayload: "PKG001",
		CapturedAt: clock.Now(), Valid: false,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if check := d.Check(ctx, "PKG001"); check.Duplicate {
		t.Error("invalidated events must not confirm duplicates")
	}
}

func TestCheck_StoreFailure_FailsOpen(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(failingScanStore{}, clock)

	check := d.Check(context.Background(), "PKG001")
	if check.Duplicate {
		t.Error("store failure must fail open (not duplicate)")
	}
	if check.Source != SourceNone {
		t.Errorf("expected source none, got %s", check.Source)
	}
}

func TestSweep_EvictsOnlyStaleEntries(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(memory.NewScanEventStore(), clock)

	d.MarkSeen("OLD")
	clock.Advance(25 * time.Hour)
	d.MarkSeen("FRESH")

	d.sweep()

	if d.Len() != 1 {
		t.Fatalf("expected 1 entry after sweep, got %d", d.Len())
	}
	d.mu.Lock()
	_, oldKept := d.seen["OLD"]
	_, freshKept := d.seen["FRESH"]
	d.mu.Unlock()
	if oldKept {
		t.Error("expected OLD to be evicted")
	}
	if !freshKept {
		t.Error("expected FRESH to survive")
	}
}

func TestReset_ClearsIndex(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(memory.NewScanEventStore(), clock)

	d.MarkSeen("PKG001")
	d.Reset()
	if d.Len() != 0 {
		t.Errorf("expected empty index after Reset, got %d entries", d.Len())
	}
}

func TestStartStop_Lifecycle(t *testing.T) {
	d := NewDuplicateDetector(memory.NewScanEventStore(), DetectorConfig{
		SweepInterval: 10 * time.Millisecond,
	}, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	d.Stop()
}
