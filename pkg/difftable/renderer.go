package difftable

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

// absentCell marks the side an Added/Removed entry has no value for.
const absentCell = "–"

type RenderOptions struct {
	// MaxValueWidth truncates rendered values; 0 disables truncation.
	MaxValueWidth int
	// ShowHeader toggles the PATH/STATUS/OLD/NEW header row.
	ShowHeader bool
}

var DefaultRenderOptions = RenderOptions{
	MaxValueWidth: 48,
	ShowHeader:    true,
}

// RenderWithOptions renders [set] as a bordered table. An empty set
// renders the theme's "no differences" line instead of an empty frame.
func RenderWithOptions(set structdiff.Set, theme Theme, opts RenderOptions) string {
	if len(set) == 0 {
		return theme.EmptyStyle.Render("no differences")
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.BorderStyle).
		StyleFunc(func(_, _ int) lipgloss.Style {
			return theme.CellStyle
		})
	if opts.ShowHeader {
		tbl.Headers(
			theme.HeaderStyle.Render("PATH"),
			theme.HeaderStyle.Render("STATUS"),
			theme.HeaderStyle.Render("OLD"),
			theme.HeaderStyle.Render("NEW"),
		)
	}

	for _, entry := range set {
		status := theme.StatusStyle(entry.Status).Render(entry.Status.String())

		oldCell, newCell := absentCell, absentCell
		switch entry.Status {
		case structdiff.Changed:
			oldCell = formatValue(entry.OldValue, theme, opts)
			newCell = formatValue(entry.NewValue, theme, opts)
		case structdiff.Added:
			newCell = formatValue(entry.NewValue, theme, opts)
		case structdiff.Removed:
			oldCell = formatValue(entry.OldValue, theme, opts)
		}

		tbl.Row(theme.PathStyle.Render(entry.Path), status, oldCell, newCell)
	}

	return tbl.Render()
}

// formatValue renders a single leaf value: quoted strings, plain
// numbers and bools, "null" for nil and a %v fallback for sequences
// and anything else.
func formatValue(v any, theme Theme, opts RenderOptions) string {
	var content string
	var style lipgloss.Style

	switch value := v.(type) {
	case string:
		content = fmt.Sprintf("%q", value)
		style = theme.StringStyle
	case bool:
		content = fmt.Sprintf("%v", value)
		style = theme.BoolStyle
	case int, int64, float64:
		content = fmt.Sprintf("%v", value)
		style = theme.NumberStyle
	case nil:
		content = "null"
		style = theme.NullStyle
	default:
		content = fmt.Sprintf("%v", value)
		style = theme.FallbackStyle
	}

	if opts.MaxValueWidth > 0 && len(content) > opts.MaxValueWidth {
		content = content[:opts.MaxValueWidth-1] + "…"
	}
	return style.Render(content)
}
