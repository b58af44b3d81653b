// Package bbolt is the BoltDB-backed [store.SheetStore].
package bbolt

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/sheetdiff-project/sheetdiff/internal/store"
)

var (
	bucketSnapshots = []byte("snapshots") // <uid>|rev -> Snapshot
	bucketPatches   = []byte("patches")   // <uid>|rev -> Patch
	bucketLatest    = []byte("latest")    // <uid>     -> uint64(next rev)
)

type Store struct {
	db    *bbolt.DB
	codec store.Codec

	counterMu sync.RWMutex
	counter   map[string]uint64 // uid -> next revision number
}

var _ store.SheetStore = (*Store)(nil)

// New opens (or creates) a vault database file. Pass nil for [codec] to
// use the default MessagePack implementation. With [durable] false the
// database skips the fsync on every commit; faster, unsafe on crashes.
func New(path string, codec store.Codec, durable bool) (*Store, error) {
	if codec == nil {
		codec = store.DefaultCodec
	}
	db, err := bbolt.Open(path, 0666, &bbolt.Options{
		Timeout:      0,
		NoSync:       !durable,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSnapshots, bucketPatches, bucketLatest} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create default buckets: %w", err)
	}
	return &Store{
		db:      db,
		codec:   codec,
		counter: make(map[string]uint64),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
