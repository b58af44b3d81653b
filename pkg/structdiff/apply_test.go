package structdiff_test

import (
	"reflect"
	"testing"

	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

func TestApplyExamples(t *testing.T) {
	cases := []struct {
		name string
		dst  structdiff.Record
		set  structdiff.Set
		want structdiff.Record
	}{
		{
			name: "changed leaf",
			dst:  structdiff.Record{"a": 1, "b": structdiff.Record{"c": 2}},
			set: structdiff.Set{
				{Path: "b.c", Status: structdiff.Changed, OldValue: 2, NewValue: 3},
			},
			want: structdiff.Record{"a": 1, "b": structdiff.Record{"c": 3}},
		},
		{
			name: "added leaf allocates intermediates",
			dst:  structdiff.Record{"a": 1},
			set: structdiff.Set{
				{Path: "b.c.d", Status: structdiff.Added, NewValue: "x"},
			},
			want: structdiff.Record{"a": 1, "b": structdiff.Record{"c": structdiff.Record{"d": "x"}}},
		},
		{
			name: "removed leaf",
			dst:  structdiff.Record{"a": 1, "b": structdiff.Record{"c": 2, "d": 3}},
			set: structdiff.Set{
				{Path: "b.c", Status: structdiff.Removed, OldValue: 2},
			},
			want: structdiff.Record{"a": 1, "b": structdiff.Record{"d": 3}},
		},
		{
			name: "removal of a missing leaf is a no-op",
			dst:  structdiff.Record{"a": 1},
			set: structdiff.Set{
				{Path: "b.c", Status: structdiff.Removed, OldValue: 2},
			},
			want: structdiff.Record{"a": 1},
		},
		{
			name: "empty set",
			dst:  structdiff.Record{"a": 1},
			set:  nil,
			want: structdiff.Record{"a": 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			structdiff.Apply(tc.dst, tc.set)
			if !reflect.DeepEqual(tc.dst, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, tc.dst)
			}
		})
	}
}

// TestApplyRoundtrip checks that replaying Compare(left, right) onto a
// copy of left produces a record Compare can no longer tell apart from
// right.
func TestApplyRoundtrip(t *testing.T) {
	left, right := sheetFixtures()

	set, err := structdiff.Compare(left, right)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	restored := cloneRecord(left)
	structdiff.Apply(restored, set)

	residual, err := structdiff.Compare(restored, right)
	if err != nil {
		t.Fatalf("residual compare: %v", err)
	}
	if len(residual) != 0 {
		t.Fatalf("roundtrip incomplete, residual diff: %v", residual)
	}
}
