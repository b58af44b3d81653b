package rosterwatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sheetdiff-project/sheetdiff/internal/rosterwatch"
)

func waitForEvent(t *testing.T, events <-chan rosterwatch.Event, wantUID string) rosterwatch.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("events channel closed while waiting")
			}
			if ev.Sheet.UID == wantUID {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %q within deadline", wantUID)
		}
	}
}

func TestRescanEmitsExistingSheets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"uid": "a"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := rosterwatch.New(context.Background(), dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := w.Rescan(); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	ev := waitForEvent(t, w.Events(), "a")
	if ev.Sheet.Name != "a" {
		t.Fatalf("unexpected sheet: %+v", ev.Sheet)
	}
}

func TestWriteTriggersReload(t *testing.T) {
	dir := t.TempDir()

	w, err := rosterwatch.New(context.Background(), dir,
		rosterwatch.WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := os.WriteFile(filepath.Join(dir, "new.yaml"), []byte("uid: fresh\nkind: npc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := waitForEvent(t, w.Events(), "fresh")
	if ev.Sheet.Kind != "npc" {
		t.Fatalf("unexpected sheet: %+v", ev.Sheet)
	}
}

func TestNonRosterFilesIgnored(t *testing.T) {
	dir := t.TempDir()

	w, err := rosterwatch.New(context.Background(), dir,
		rosterwatch.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStopClosesEventsAndRescanFails(t *testing.T) {
	dir := t.TempDir()

	w, err := rosterwatch.New(context.Background(), dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w.Stop()

	if _, ok := <-w.Events(); ok {
		t.Fatal("events channel should be closed after Stop")
	}
	if err := w.Rescan(); !errors.Is(err, rosterwatch.ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
	// Stop twice must not panic
	w.Stop()
}
