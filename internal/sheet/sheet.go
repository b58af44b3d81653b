// Package sheet holds the character-sheet record model and the roster
// file loader.
package sheet

import (
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

// Sheet is one character record. Data is the full nested sheet body;
// UID, Name and Kind are lifted out of it so the rest of the program
// never digs into Data for identity.
type Sheet struct {
	UID  string
	Name string
	Kind string
	Tags []string

	Data structdiff.Record
}

// Clone returns a deep copy of the sheet. Callers hand clones to
// anything that may hold onto the data (the vault, the diff engine's
// Apply), so stored state is never aliased with live roster state.
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		UID:  s.UID,
		Name: s.Name,
		Kind: s.Kind,
		Data: CloneRecord(s.Data),
	}
	if s.Tags != nil {
		out.Tags = append([]string(nil), s.Tags...)
	}
	return out
}

// CloneRecord deep-copies a record. Nested records and sequences are
// copied; scalar leaves are shared (they are immutable values).
func CloneRecord(rec structdiff.Record) structdiff.Record {
	if rec == nil {
		return nil
	}
	out := make(structdiff.Record, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return CloneRecord(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}
