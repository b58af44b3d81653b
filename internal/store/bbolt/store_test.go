package bbolt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sheetdiff-project/sheetdiff/internal/store"
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

// handy constants -----------------------------------------------------------

var (
	ctx = context.Background()
	uid = "sheet-uid"
)

// TestNewAndBuckets checks that the DB opens and buckets exist.
func TestNewAndBuckets(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "vault.db"), nil, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	info, _ := os.Stat(s.db.Path())
	if info.Size() == 0 {
		t.Fatal("DB file should not be empty")
	}
}

// TestSnapshotPatchRoundtrip covers:
//   - claimNextRevision
//   - SaveSnapshot / SavePatch
//   - GetSnapshot / GetPatch / GetLatestRevision
func TestSnapshotPatchRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(filepath.Join(dir, "vault.db"), nil, false)
	t.Cleanup(func() { _ = s.Close() })

	// -------- 1st snapshot -----------------------------------------------
	snap := &store.Snapshot{Name: "Brianna", Kind: "pc", Data: structdiff.Record{"foo": "bar"}}
	if err := s.SaveSnapshot(ctx, uid, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if snap.ID != 0 {
		t.Fatalf("first snapshot should have ID 0, got %d", snap.ID)
	}

	latest, err := s.GetLatestRevision(ctx, uid)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest != 0 {
		t.Fatalf("latest want 0, got %d", latest)
	}

	// -------- patch #1 ----------------------------------------------------
	patch1 := &store.Patch{
		PreviousID: snap.ID,
		Changes: structdiff.Set{
			{Path: "foo", Status: structdiff.Changed, OldValue: "bar", NewValue: "baz"},
		},
	}
	if err := s.SavePatch(ctx, uid, patch1); err != nil {
		t.Fatalf("save patch1: %v", err)
	}
	if patch1.ID != 1 {
		t.Fatalf("patch1 should receive ID 1, got %d", patch1.ID)
	}

	// -------- patch #2 ----------------------------------------------------
	patch2 := &store.Patch{
		PreviousID: patch1.ID,
		Changes: structdiff.Set{
			{Path: "bar", Status: structdiff.Added, NewValue: int64(42)},
		},
	}
	_ = s.SavePatch(ctx, uid, patch2)

	if latest, _ := s.GetLatestRevision(ctx, uid); latest != 2 {
		t.Fatalf("latest want 2, got %d", latest)
	}

	// -------- random gets -------------------------------------------------
	// rev-0 -> snapshot
	sn0, err := s.GetSnapshot(ctx, uid, 0)
	if err != nil {
		t.Fatalf("rev0: %v", err)
	}
	if sn0.Name != "Brianna" || sn0.Data["foo"] != "bar" {
		t.Fatalf("rev0 snapshot mangled: %+v", sn0)
	}
	// rev-0 is not a patch
	if _, err := s.GetPatch(ctx, uid, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rev0 as patch: want ErrNotFound, got %v", err)
	}
	// rev-1 -> patch
	p1, err := s.GetPatch(ctx, uid, 1)
	if err != nil {
		t.Fatalf("rev1: %v", err)
	}
	if p1.ID != 1 || !reflect.DeepEqual(p1.Changes, patch1.Changes) {
		t.Fatalf("rev1 patch mangled: %+v", p1)
	}
	// rev-2 -> patch
	p2, err := s.GetPatch(ctx, uid, 2)
	if err != nil || p2.ID != 2 {
		t.Fatalf("rev2 not patch2: %+v / %v", p2, err)
	}
}

// TestConcurrentClaims ensures claimNextRevision is atomic.
func TestConcurrentClaims(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(filepath.Join(dir, "vault.db"), nil, false)
	t.Cleanup(func() { _ = s.Close() })

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			errs <- s.SaveSnapshot(ctx, uid, &store.Snapshot{Data: structdiff.Record{"x": i}})
		}(i)
	}
	for i := 0; i < 20; i++ {
		if e := <-errs; e != nil {
			t.Fatalf("concurrent SaveSnapshot failed: %v", e)
		}
	}

	if latest, _ := s.GetLatestRevision(ctx, uid); latest != 19 {
		t.Fatalf("after 20 writes, latest should be 19, got %d", latest)
	}
}

func TestListUIDs(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(filepath.Join(dir, "vault.db"), nil, false)
	t.Cleanup(func() { _ = s.Close() })

	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveSnapshot(ctx, id, &store.Snapshot{Data: structdiff.Record{}}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	uids, err := s.ListUIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(uids, []string{"a", "b", "c"}) {
		t.Fatalf("uids: %v", uids)
	}
}

func TestUnknownUID(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(filepath.Join(dir, "vault.db"), nil, false)
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.GetLatestRevision(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.GetSnapshot(ctx, "nope", 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestPersistedValues verifies that bytes written are real MessagePack.
func TestPersistedValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.db")
	s, _ := New(path, nil, true)
	_ = s.SaveSnapshot(ctx, uid, &store.Snapshot{Data: structdiff.Record{"k": "v"}})
	_ = s.Close()

	// reopen raw file and search for a MessagePack map header
	blob, _ := os.ReadFile(path)
	if !bytes.Contains(blob, []byte{0x81}) {
		t.Fatalf("file does not appear to contain msgpack map header")
	}
}
