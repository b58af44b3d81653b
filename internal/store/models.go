package store

import (
	"fmt"
	"time"

	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

type RevisionID uint64

func (id RevisionID) String() string {
	return fmt.Sprintf("%08x", uint64(id))
}

// Snapshot is a full copy of a sheet at one revision.
type Snapshot struct {
	// ID of the revision, assigned by the store on save.
	ID RevisionID `msgpack:"i"`
	// PreviousID is the revision this one follows. Zero on the first
	// revision of a sheet.
	PreviousID RevisionID `msgpack:"p,omitempty"`
	// Time the revision was committed.
	Time time.Time `msgpack:"w"`

	// Sheet header, duplicated here so listings never need the body.
	Name string `msgpack:"n,omitempty"`
	Kind string `msgpack:"k,omitempty"`

	// Data is the full sheet body at this revision.
	Data structdiff.Record `msgpack:"o"`
}

// Patch records only what changed since PreviousID.
type Patch struct {
	ID         RevisionID `msgpack:"i"`
	PreviousID RevisionID `msgpack:"p,omitempty"`
	Time       time.Time  `msgpack:"w"`

	// Changes is the difference set that transforms the previous state
	// into this revision; see [structdiff.Apply].
	Changes structdiff.Set `msgpack:"s"`
}
