package bbolt

import (
	"context"
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/sheetdiff-project/sheetdiff/internal/store"
)

// SaveSnapshot stores a full snapshot and bumps the counter.
func (s *Store) SaveSnapshot(_ context.Context, uid string, snap *store.Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, uid)
		if err != nil {
			return err
		}
		snap.ID = revNum

		payload, err := s.codec.Marshal(snap)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSnapshots).Put(keyUIDRevision(uid, revNum), payload)
	})
}

// SavePatch stores a difference set and bumps the counter.
func (s *Store) SavePatch(_ context.Context, uid string, p *store.Patch) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, uid)
		if err != nil {
			return err
		}
		p.ID = revNum

		payload, err := s.codec.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPatches).Put(keyUIDRevision(uid, revNum), payload)
	})
}

func (s *Store) GetSnapshot(_ context.Context, uid string, rev store.RevisionID) (*store.Snapshot, error) {
	var snap store.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get(keyUIDRevision(uid, rev))
		if v == nil {
			return store.ErrNotFound
		}
		return s.codec.Unmarshal(v, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) GetPatch(_ context.Context, uid string, rev store.RevisionID) (*store.Patch, error) {
	var p store.Patch
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketPatches).Get(keyUIDRevision(uid, rev))
		if v == nil {
			return store.ErrNotFound
		}
		return s.codec.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetLatestRevision returns the highest committed revision for uid.
func (s *Store) GetLatestRevision(_ context.Context, uid string) (store.RevisionID, error) {
	// check cache first
	s.counterMu.RLock()
	if next, ok := s.counter[uid]; ok {
		s.counterMu.RUnlock()
		return store.RevisionID(next - 1), nil
	}
	s.counterMu.RUnlock()

	var next uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketLatest).Get([]byte(uid))
		if v == nil {
			return store.ErrNotFound
		}
		next = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.counterMu.Lock()
	s.counter[uid] = next
	s.counterMu.Unlock()
	return store.RevisionID(next - 1), nil
}

// ListUIDs returns every UID the vault has at least one revision for.
func (s *Store) ListUIDs(_ context.Context) ([]string, error) {
	var uids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLatest).ForEach(func(k, _ []byte) error {
			uids = append(uids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return uids, nil
}
