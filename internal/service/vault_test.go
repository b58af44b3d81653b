package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sheetdiff-project/sheetdiff/internal/service"
	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
	"github.com/sheetdiff-project/sheetdiff/internal/store"
	bboltStore "github.com/sheetdiff-project/sheetdiff/internal/store/bbolt"
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

func newVault(t *testing.T, snapshotEvery uint64, cached bool) *service.VaultService {
	t.Helper()
	vault, err := bboltStore.New(filepath.Join(t.TempDir(), "vault.db"), nil, false)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	svc := service.NewVaultService(vault, snapshotEvery, cached)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func testSheet(hp float64) *sheet.Sheet {
	return &sheet.Sheet{
		UID:  "pc-brianna",
		Name: "Brianna",
		Kind: "pc",
		Data: structdiff.Record{
			"name": "Brianna",
			"stats": structdiff.Record{
				"hp":       hp,
				"strength": float64(14),
			},
		},
	}
}

func TestCommitAndRestore(t *testing.T) {
	ctx := context.Background()
	svc := newVault(t, 4, true)

	// commit 10 revisions with a moving hp value; with snapshotEvery=4
	// this crosses several snapshot/patch boundaries
	for i := 0; i < 10; i++ {
		s := testSheet(float64(20 - i))
		rev, err := svc.Commit(ctx, s)
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		if rev != store.RevisionID(i) {
			t.Fatalf("commit %d: want rev %d, got %s", i, i, rev)
		}
	}

	// every revision must restore to the exact state committed
	for i := 0; i < 10; i++ {
		state, err := svc.Restore(ctx, "pc-brianna", store.RevisionID(i))
		if err != nil {
			t.Fatalf("restore %d: %v", i, err)
		}
		want := testSheet(float64(20 - i)).Data
		residual, err := structdiff.Compare(state, want)
		if err != nil {
			t.Fatalf("compare %d: %v", i, err)
		}
		if len(residual) != 0 {
			t.Fatalf("revision %d restored wrong, residual diff: %v", i, residual)
		}
	}
}

func TestCommitDoesNotAliasCallerData(t *testing.T) {
	ctx := context.Background()
	svc := newVault(t, 4, true)

	s := testSheet(20)
	if _, err := svc.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// mutate the caller's sheet after committing
	s.Data["stats"].(map[string]any)["hp"] = float64(1)

	state, err := svc.Restore(ctx, s.UID, 0)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if hp := state["stats"].(map[string]any)["hp"]; hp != float64(20) {
		t.Fatalf("stored state aliased with caller data, hp = %v", hp)
	}
}

func TestCompareRevisions(t *testing.T) {
	ctx := context.Background()
	svc := newVault(t, 8, false)

	if _, err := svc.Commit(ctx, testSheet(20)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := svc.Commit(ctx, testSheet(12)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	set, err := svc.CompareRevisions(ctx, "pc-brianna", 0, 1)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("want exactly one difference, got %v", set)
	}
	e := set[0]
	if e.Path != "stats.hp" || e.Status != structdiff.Changed ||
		e.OldValue != float64(20) || e.NewValue != float64(12) {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestCompareLatest(t *testing.T) {
	ctx := context.Background()
	svc := newVault(t, 8, false)

	left := &sheet.Sheet{UID: "a", Name: "A", Data: structdiff.Record{"x": float64(1)}}
	right := &sheet.Sheet{UID: "b", Name: "B", Data: structdiff.Record{"x": float64(1), "y": float64(2)}}
	if _, err := svc.Commit(ctx, left); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if _, err := svc.Commit(ctx, right); err != nil {
		t.Fatalf("commit b: %v", err)
	}

	set, err := svc.CompareLatest(ctx, "a", "b")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(set) != 1 || set[0].Path != "y" || set[0].Status != structdiff.Added {
		t.Fatalf("unexpected set: %v", set)
	}
}

func TestRestoreUnknownSheet(t *testing.T) {
	ctx := context.Background()
	svc := newVault(t, 8, false)

	if _, err := svc.RestoreLatest(ctx, "nope"); err == nil {
		t.Fatal("restoring an unknown sheet should fail")
	}
}

// benchCommit is the shared benchmark body.
func benchCommit(b *testing.B, snapshotEvery uint64) {
	dbPath := fmt.Sprintf("%s/bench-%d.db", b.TempDir(), snapshotEvery)

	vault, err := bboltStore.New(dbPath, nil, false)
	if err != nil {
		b.Fatalf("init store: %v", err)
	}
	svc := service.NewVaultService(vault, snapshotEvery, true)
	defer func() { _ = svc.Close() }()

	// make the sheet body large
	body := structdiff.Record{}
	for i := 0; i < 500; i++ {
		key := "field" + strconv.Itoa(i)
		body[key] = "value" + strconv.Itoa(i)
	}
	s := &sheet.Sheet{
		UID:  "bench-uid",
		Name: "bench",
		Data: structdiff.Record{"name": "bench", "fields": body, "generation": float64(0)},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// mutate one field + generation each commit
		body["field0"] = "mutation" + strconv.Itoa(i)
		s.Data["generation"] = float64(i + 1)

		if _, err := svc.Commit(b.Context(), s); err != nil {
			b.Fatalf("commit error: %v", err)
		}
	}
}

func BenchmarkCommit_SnapshotEvery1(b *testing.B)  { benchCommit(b, 1) }
func BenchmarkCommit_SnapshotEvery4(b *testing.B)  { benchCommit(b, 4) }
func BenchmarkCommit_SnapshotEvery16(b *testing.B) { benchCommit(b, 16) }
