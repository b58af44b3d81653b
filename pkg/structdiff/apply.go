package structdiff

import "strings"

// Apply replays [set] onto [dst] so that, after the call, dst carries
// every reported difference: Added and Changed entries write their new
// value at the entry's path (allocating intermediate maps as needed),
// Removed entries delete the leaf.
//
//	dst := Record{"a": 1, "b": Record{"c": 2}}
//	set, _ := structdiff.Compare(dst, Record{"a": 1, "b": Record{"c": 3}})
//	structdiff.Apply(dst, set) // dst is now {"a":1,"b":{"c":3}}
//
// Paths are split on '.', so record keys containing a dot are not
// addressable. A removal may leave an emptied intermediate map behind;
// such a map holds no leaves and is invisible to [Compare].
func Apply(dst Record, set Set) {
	if dst == nil || len(set) == 0 {
		return
	}
	for _, entry := range set {
		segments := strings.Split(entry.Path, ".")
		switch entry.Status {
		case Added, Changed:
			setLeaf(dst, segments, entry.NewValue)
		case Removed:
			deleteLeaf(dst, segments)
		}
	}
}

// setLeaf walks down to the parent of the leaf, allocating (or
// replacing non-map values with) intermediate maps on the way.
func setLeaf(dst Record, segments []string, value any) {
	for _, seg := range segments[:len(segments)-1] {
		sub, ok := dst[seg].(map[string]any)
		if !ok {
			// either key absent or not a map -> allocate once
			sub = make(map[string]any)
			dst[seg] = sub
		}
		dst = sub
	}
	dst[segments[len(segments)-1]] = value
}

// deleteLeaf walks down without allocating; a broken path means the
// leaf is already gone.
func deleteLeaf(dst Record, segments []string) {
	for _, seg := range segments[:len(segments)-1] {
		sub, ok := dst[seg].(map[string]any)
		if !ok {
			return
		}
		dst = sub
	}
	delete(dst, segments[len(segments)-1])
}
