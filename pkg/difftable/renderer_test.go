package difftable_test

import (
	"strings"
	"testing"

	"github.com/sheetdiff-project/sheetdiff/pkg/difftable"
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

func TestRenderContainsPathsAndStatuses(t *testing.T) {
	set := structdiff.Set{
		{Path: "inventory.gold", Status: structdiff.Changed, OldValue: 120, NewValue: 80},
		{Path: "inventory.items.rope", Status: structdiff.Added, NewValue: 1},
		{Path: "stats.wisdom", Status: structdiff.Removed, OldValue: 9},
	}

	out := difftable.Render(set, difftable.DarkTheme)

	for _, want := range []string{
		"inventory.gold", "inventory.items.rope", "stats.wisdom",
		"changed", "added", "removed",
		"120", "80",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
	// one line per entry, plus header and borders
	if lines := strings.Count(out, "\n"); lines < len(set) {
		t.Fatalf("table has too few lines (%d):\n%s", lines, out)
	}
}

func TestRenderEmptySet(t *testing.T) {
	out := difftable.Render(nil, difftable.DarkTheme)
	if !strings.Contains(out, "no differences") {
		t.Fatalf("empty set should render placeholder, got:\n%s", out)
	}
}

func TestRenderTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 200)
	set := structdiff.Set{
		{Path: "notes", Status: structdiff.Added, NewValue: long},
	}

	out := difftable.RenderWithOptions(set, difftable.DarkTheme, difftable.RenderOptions{
		MaxValueWidth: 16,
		ShowHeader:    false,
	})

	if strings.Contains(out, long) {
		t.Fatal("long value should have been truncated")
	}
	if !strings.Contains(out, "…") {
		t.Fatalf("truncated value should end with ellipsis:\n%s", out)
	}
}
