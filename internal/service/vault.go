// Package service sits between the UI and the vault: it commits sheet
// revisions, restores historical states and answers comparison
// requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
	"github.com/sheetdiff-project/sheetdiff/internal/store"
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

// VaultService tracks sheet changes. The first revision of a sheet and
// every revision after snapshotEvery patches is stored as a full
// snapshot; everything in between is a difference-set patch.
type VaultService struct {
	vault         store.SheetStore
	snapshotEvery uint64 // create full snapshot after this many patches
	cache         *stateCache
}

// NewVaultService creates a new VaultService instance.
func NewVaultService(vault store.SheetStore, snapshotEvery uint64, cached bool) *VaultService {
	if snapshotEvery == 0 {
		snapshotEvery = 10
	}
	svc := &VaultService{
		vault:         vault,
		snapshotEvery: snapshotEvery,
	}
	if cached {
		svc.cache = newStateCache()
	}
	return svc
}

// Commit persists the sheet's current state and returns the new
// revision ID. An unchanged sheet still gets a revision; deciding
// whether to commit is the caller's business.
func (v *VaultService) Commit(ctx context.Context, s *sheet.Sheet) (store.RevisionID, error) {
	latest, err := v.vault.GetLatestRevision(ctx, s.UID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}

		// first time we see this sheet
		snap := store.Snapshot{Name: s.Name, Kind: s.Kind, Data: sheet.CloneRecord(s.Data), Time: time.Now()}
		if err := v.vault.SaveSnapshot(ctx, s.UID, &snap); err != nil {
			return 0, err
		}
		v.cacheSet(s.UID, snap.Data, snap.ID)
		return snap.ID, nil
	}

	chain, err := v.patchDistance(ctx, s.UID, latest)
	if err != nil {
		return 0, err
	}

	// check if it's time for a full snapshot
	if uint64(chain) >= v.snapshotEvery-1 {
		snap := store.Snapshot{
			PreviousID: latest,
			Name:       s.Name,
			Kind:       s.Kind,
			Data:       sheet.CloneRecord(s.Data),
			Time:       time.Now(),
		}
		if err := v.vault.SaveSnapshot(ctx, s.UID, &snap); err != nil {
			return 0, err
		}
		v.cacheSet(s.UID, snap.Data, snap.ID)
		return snap.ID, nil
	}

	// reconstruct latest state to diff against
	base, err := v.Restore(ctx, s.UID, latest)
	if err != nil {
		return 0, err
	}

	changes, err := structdiff.Compare(base, s.Data)
	if err != nil {
		return 0, err
	}

	p := &store.Patch{
		PreviousID: latest,
		Changes:    changes,
		Time:       time.Now(),
	}
	if err := v.vault.SavePatch(ctx, s.UID, p); err != nil {
		return 0, err
	}
	v.cacheSet(s.UID, sheet.CloneRecord(s.Data), p.ID)
	return p.ID, nil
}

// Restore brings back the sheet state at [rev]: walk backwards to the
// nearest snapshot, then replay the patch chain forward.
func (v *VaultService) Restore(ctx context.Context, uid string, rev store.RevisionID) (structdiff.Record, error) {
	if state, ok := v.cacheGet(uid, rev); ok {
		return sheet.CloneRecord(state), nil
	}

	var chain []store.RevisionID
	cur := rev
	for {
		if snap, err := v.vault.GetSnapshot(ctx, uid, cur); err == nil {
			// found the base snapshot
			state := sheet.CloneRecord(snap.Data)
			for i := len(chain) - 1; i >= 0; i-- {
				p, err := v.vault.GetPatch(ctx, uid, chain[i])
				if err != nil {
					return nil, fmt.Errorf("broken chain at %s: %w", chain[i], err)
				}
				structdiff.Apply(state, p.Changes)
			}
			v.cacheSet(uid, sheet.CloneRecord(state), rev)
			return state, nil
		}
		p, err := v.vault.GetPatch(ctx, uid, cur)
		if err != nil {
			return nil, fmt.Errorf("broken chain at %s: %w", cur, err)
		}
		chain = append(chain, cur)
		cur = p.PreviousID
	}
}

// Compare restores two arbitrary (sheet, revision) pairs and diffs
// them. This is what the UI calls whenever the selection pair changes;
// only one comparison is ever computed per selection, the previous
// result is simply discarded by the caller.
func (v *VaultService) Compare(ctx context.Context, leftUID string, leftRev store.RevisionID, rightUID string, rightRev store.RevisionID) (structdiff.Set, error) {
	leftState, err := v.Restore(ctx, leftUID, leftRev)
	if err != nil {
		return nil, fmt.Errorf("restoring %s@%s: %w", leftUID, leftRev, err)
	}
	rightState, err := v.Restore(ctx, rightUID, rightRev)
	if err != nil {
		return nil, fmt.Errorf("restoring %s@%s: %w", rightUID, rightRev, err)
	}
	return structdiff.Compare(leftState, rightState)
}

// CompareRevisions diffs two revisions of one sheet.
func (v *VaultService) CompareRevisions(ctx context.Context, uid string, left, right store.RevisionID) (structdiff.Set, error) {
	return v.Compare(ctx, uid, left, uid, right)
}

// CompareLatest restores the newest revision of two sheets and diffs
// them.
func (v *VaultService) CompareLatest(ctx context.Context, leftUID, rightUID string) (structdiff.Set, error) {
	leftState, err := v.RestoreLatest(ctx, leftUID)
	if err != nil {
		return nil, err
	}
	rightState, err := v.RestoreLatest(ctx, rightUID)
	if err != nil {
		return nil, err
	}
	return structdiff.Compare(leftState, rightState)
}

// RestoreLatest restores the newest revision of a sheet.
func (v *VaultService) RestoreLatest(ctx context.Context, uid string) (structdiff.Record, error) {
	latest, err := v.vault.GetLatestRevision(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("latest revision of %s: %w", uid, err)
	}
	return v.Restore(ctx, uid, latest)
}

func (v *VaultService) patchDistance(ctx context.Context, uid string, from store.RevisionID) (int, error) {
	n := 0
	cur := from
	for {
		if _, err := v.vault.GetSnapshot(ctx, uid, cur); err == nil {
			return n, nil
		}
		p, err := v.vault.GetPatch(ctx, uid, cur)
		if err != nil {
			return 0, err
		}
		n++
		cur = p.PreviousID
	}
}

// Close stops the cache janitor and closes the underlying store.
func (v *VaultService) Close() error {
	if v.cache != nil {
		v.cache.close()
	}
	return v.vault.Close()
}

// WarmCache primes the state cache with an already restored state.
// Used when replaying vault history at startup so the first Restore
// per sheet does not have to walk the whole chain again.
func (v *VaultService) WarmCache(uid string, state structdiff.Record, rev store.RevisionID) {
	v.cacheSet(uid, state, rev)
}

func (v *VaultService) cacheGet(uid string, rev store.RevisionID) (structdiff.Record, bool) {
	if v.cache == nil {
		return nil, false
	}
	entry := v.cache.get(uid)
	if entry == nil || entry.rev != rev {
		return nil, false
	}
	return entry.state, true
}

func (v *VaultService) cacheSet(uid string, state structdiff.Record, rev store.RevisionID) {
	if v.cache == nil {
		return
	}
	v.cache.set(uid, &sheetState{state: state, rev: rev})
}
