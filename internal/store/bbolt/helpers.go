package bbolt

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/sheetdiff-project/sheetdiff/internal/store"
)

func keyUIDRevision(uid string, id store.RevisionID) []byte {
	buf := make([]byte, len(uid)+1+8)
	copy(buf, uid)
	buf[len(uid)] = '|'
	binary.BigEndian.PutUint64(buf[len(uid)+1:], uint64(id))
	return buf
}

// claimNextRevision atomically increments the per-UID counter in
// bucketLatest *and* updates the in-memory cache. It returns the newly
// assigned revision number.
func (s *Store) claimNextRevision(tx *bbolt.Tx, uid string) (store.RevisionID, error) {
	latest := tx.Bucket(bucketLatest)

	var next uint64
	if raw := latest.Get([]byte(uid)); raw != nil {
		next = binary.BigEndian.Uint64(raw)
	}
	revisionNumber := store.RevisionID(next)
	next++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := latest.Put([]byte(uid), buf); err != nil {
		return 0, err
	}

	s.counterMu.Lock()
	s.counter[uid] = next
	s.counterMu.Unlock()

	return revisionNumber, nil
}
