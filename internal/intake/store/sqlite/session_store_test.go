package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
	sqlitestore "github.com/damjan1996/scanintake/internal/intake/store/sqlite"
)

func TestIdentityStore_FindByBadge(t *testing.T) {
	conn := openTestDB(t)
	seedIdentity(t, conn, "op-1", "BADGE-A")
	is := sqlitestore.NewIdentityStore(conn)
	ctx := context.Background()

	rec, err := is.FindByBadge(ctx, "BADGE-A")
	if err != nil {
		t.Fatalf("FindByBadge: %v", err)
	}
	if rec == nil {
		t.Fatal("expected identity")
	}
	if rec.ID != "op-1" || !rec.Active {
		t.Errorf("unexpected record: %+v", rec)
	}

	missing, err := is.FindByBadge(ctx, "NOBODY")
	if err != nil {
		t.Fatalf("FindByBadge missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown badge")
	}
}

func TestSessionStore_InsertAndFind(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "op-1", "BADGE-A")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := store.SessionRecord{
		ID:         "sess-1",
		IdentityID: "op-1",
		StartedAt:  started,
		Active:     true,
	}
	if err := ss.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	byID, err := ss.FindByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if byID == nil || !byID.Active || !byID.StartedAt.Equal(started) {
		t.Errorf("unexpected session: %+v", byID)
	}
	if byID.EndedAt != nil {
		t.Error("expected no end timestamp")
	}

	active, err := ss.FindActiveByIdentity(ctx, "op-1")
	if err != nil {
		t.Fatalf("FindActiveByIdentity: %v", err)
	}
	if active == nil || active.ID != "sess-1" {
		t.Errorf("expected sess-1 active, got %+v", active)
	}
}

func TestSessionStore_Close(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "op-1", "BADGE-A")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := ss.Insert(ctx, store.SessionRecord{
		ID: "sess-1", IdentityID: "op-1", StartedAt: started, Active: true,
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ended := started.Add(90 * time.Minute)
	closed, err := ss.Close(ctx, "sess-1", ended)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Fatal("expected Close to report success")
	}

	rec, err := ss.FindByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if rec.Active {
		t.Error("expected session inactive after Close")
	}
	if rec.EndedAt == nil || !rec.EndedAt.Equal(ended) {
		t.Errorf("expected ended_at=%s, got %v", ended, rec.EndedAt)
	}

	// Second close: no active row left.
	closed, err = ss.Close(ctx, "sess-1", ended.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if closed {
		t.Error("expected second Close to report no-op")
	}

	active, err := ss.FindActiveByIdentity(ctx, "op-1")
	if err != nil {
		t.Fatalf("FindActiveByIdentity: %v", err)
	}
	if active != nil {
		t.Error("expected no active session after Close")
	}
}

func TestSessionStore_OneActivePerIdentityEnforced(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "op-1", "BADGE-A")
	ss := sqlitestore.NewSessionStore(conn, w)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := ss.Insert(ctx, store.SessionRecord{
		ID: "sess-1", IdentityID: "op-1", StartedAt: started, Active: true,
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// The partial unique index rejects a second active session even when
	// the service layer is bypassed.
	err := ss.Insert(ctx, store.SessionRecord{
		ID: "sess-2", IdentityID: "op-1", StartedAt: started.Add(time.Minute), Active: true,
	})
	if err == nil {
		t.Fatal("expected unique violation for second active session")
	}

	// A closed session plus a new active one is fine.
	if _, err := ss.Close(ctx, "sess-1", started.Add(time.Hour)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ss.Insert(ctx, store.SessionRecord{
		ID: "sess-3", IdentityID: "op-1", StartedAt: started.Add(2 * time.Hour), Active: true,
	}); err != nil {
		t.Fatalf("Insert after close: %v", err)
	}
}
