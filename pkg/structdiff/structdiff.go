// Package structdiff compares two nested key/value records and reports
// every leaf-level difference as a flat, path-addressed change list.
//
// A [Set] contains only the paths that differ: added leaves carry their
// new value, removed leaves their old value, changed leaves both. Paths
// are dot-delimited and the set is sorted bytewise by path, so output
// for identical inputs is always identical.
package structdiff

// Record is an arbitrarily nested mapping from string keys to values.
// A value may be a scalar, a nested Record or an ordered sequence.
type Record = map[string]any

// Status classifies a single difference.
type Status uint8

const (
	Changed Status = iota
	Added
	Removed
)

func (s Status) String() string {
	switch s {
	case Changed:
		return "changed"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Entry is one reported discrepancy at a key path.
//
// For Added entries only NewValue is set, for Removed entries only
// OldValue; Changed entries carry both.
type Entry struct {
	Path     string `msgpack:"p" json:"path"`
	Status   Status `msgpack:"t" json:"status"`
	OldValue any    `msgpack:"o,omitempty" json:"oldValue,omitempty"`
	NewValue any    `msgpack:"n,omitempty" json:"newValue,omitempty"`
}

// Set is an ordered list of entries, sorted bytewise by Path, with each
// path appearing at most once. A Set holds no reference back to the
// records it was computed from and must not be modified once returned.
type Set []Entry
