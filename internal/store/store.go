package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRevision = errors.New("invalid revision")
)

// SheetStore persists sheet revisions. Every revision is either a full
// snapshot or a patch (a difference set against the previous revision).
// Revision IDs are assigned by the store and are dense per UID.
type SheetStore interface {
	SaveSnapshot(ctx context.Context, uid string, snap *Snapshot) error
	SavePatch(ctx context.Context, uid string, p *Patch) error

	GetSnapshot(ctx context.Context, uid string, rev RevisionID) (*Snapshot, error)
	GetPatch(ctx context.Context, uid string, rev RevisionID) (*Patch, error)

	GetLatestRevision(ctx context.Context, uid string) (RevisionID, error)
	ListUIDs(ctx context.Context) ([]string, error)

	Close() error
}
