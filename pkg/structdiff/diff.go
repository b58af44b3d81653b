package structdiff

import (
	"errors"
	"reflect"
	"sort"
)

// ErrNilRecord is returned by [Compare] when either input is absent.
// Callers should treat it as "nothing selected", not as a diff result.
var ErrNilRecord = errors.New("structdiff: nil record")

// Compare returns the leaf-level differences between [left] and
// [right]. Neither input is mutated; the result is fully independent
// of both.
//
// A path is recursed into only when BOTH sides hold a nested Record.
// Every other combination is a single leaf, so a value that changes
// type (scalar to Record or back) yields exactly one Changed entry at
// that path. A key explicitly present with a nil value is distinct
// from an absent key; presence is decided by map lookup, never by
// comparing the value against nil.
func Compare(left, right Record) (Set, error) {
	if left == nil || right == nil {
		return nil, ErrNilRecord
	}

	var set Set
	seen := make(map[string]struct{})
	forward(left, right, "", &set, seen)
	backward(left, right, "", &set, seen)

	sort.Slice(set, func(i, j int) bool {
		return set[i].Path < set[j].Path
	})
	return set, nil
}

// forward walks [right] against [left] and classifies every leaf of
// [right] that differs from (Changed) or is missing in (Added) [left].
func forward(left, right Record, prefix string, out *Set, seen map[string]struct{}) {
	for key, rightValue := range right {
		path := joinPath(prefix, key)

		leftValue, present := left[key]
		if !present {
			addedLeaves(rightValue, path, out, seen)
			continue
		}

		leftRec, leftIsRec := asRecord(leftValue)
		rightRec, rightIsRec := asRecord(rightValue)
		if leftIsRec && rightIsRec {
			forward(leftRec, rightRec, path, out, seen)
			continue
		}

		if !leafEqual(leftValue, rightValue) {
			*out = append(*out, Entry{Path: path, Status: Changed, OldValue: leftValue, NewValue: rightValue})
			seen[path] = struct{}{}
		}
	}
}

// backward walks [left] against [right] picking up leaves that only
// exist in [left]. Anything present on both sides has already been
// classified by the forward pass and is skipped.
func backward(left, right Record, prefix string, out *Set, seen map[string]struct{}) {
	for key, leftValue := range left {
		path := joinPath(prefix, key)

		rightValue, present := right[key]
		if !present {
			removedLeaves(leftValue, path, out, seen)
			continue
		}

		leftRec, leftIsRec := asRecord(leftValue)
		rightRec, rightIsRec := asRecord(rightValue)
		if leftIsRec && rightIsRec {
			backward(leftRec, rightRec, path, out, seen)
		}
	}
}

// addedLeaves expands an added subtree into one Added entry per leaf.
// An empty Record has no leaves and therefore emits nothing.
func addedLeaves(v any, path string, out *Set, seen map[string]struct{}) {
	if rec, ok := asRecord(v); ok {
		for key, sub := range rec {
			addedLeaves(sub, joinPath(path, key), out, seen)
		}
		return
	}
	*out = append(*out, Entry{Path: path, Status: Added, NewValue: v})
	seen[path] = struct{}{}
}

// removedLeaves is the mirror of addedLeaves. A path the forward pass
// already captured must not additionally show up as Removed.
func removedLeaves(v any, path string, out *Set, seen map[string]struct{}) {
	if rec, ok := asRecord(v); ok {
		for key, sub := range rec {
			removedLeaves(sub, joinPath(path, key), out, seen)
		}
		return
	}
	if _, dup := seen[path]; dup {
		return
	}
	*out = append(*out, Entry{Path: path, Status: Removed, OldValue: v})
}

func asRecord(v any) (Record, bool) {
	rec, ok := v.(map[string]any)
	return rec, ok
}

// leafEqual is a tight equality test that avoids reflection for the
// scalar types roster data is made of. Sequences and anything exotic
// fall back to reflect.DeepEqual.
func leafEqual(a, b any) bool {
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case float64:
		vb, ok := b.(float64)
		return ok && va == vb
	case int:
		vb, ok := b.(int)
		return ok && va == vb
	case int64:
		vb, ok := b.(int64)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
