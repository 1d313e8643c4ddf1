package service_test

import (
	"fmt"
	"testing"

	"github.com/damjan1996/scanintake/internal/intake/service"
	"github.com/damjan1996/scanintake/internal/intake/store"
)

func TestScanFeed_DeliversInOrder(t *testing.T) {
	feed := service.NewScanFeed(8, silentLogger())

	for i := 0; i < 3; i++ {
		feed.Publish(service.ScanAccepted{Event: store.ScanEventRecord{ID: fmt.Sprintf("ev-%d", i)}})
	}
	feed.Close()

	var got []string
	for ev := range feed.Events() {
		got = append(got, ev.Event.ID)
	}
	want := []string{"ev-0", "ev-1", "ev-2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestScanFeed_DropsWhenFull(t *testing.T) {
	feed := service.NewScanFeed(2, silentLogger())

	for i := 0; i < 5; i++ {
		feed.Publish(service.ScanAccepted{Event: store.ScanEventRecord{ID: fmt.Sprintf("ev-%d", i)}})
	}

	if feed.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", feed.Dropped())
	}
}

func TestScanFeed_CloseIsIdempotent(t *testing.T) {
	feed := service.NewScanFeed(1, silentLogger())

	feed.Close()
	feed.Close()

	// Publishing after close must not panic.
	feed.Publish(service.ScanAccepted{Event: store.ScanEventRecord{ID: "late"}})

	if _, open := <-feed.Events(); open {
		t.Error("expected channel to be closed")
	}
}
