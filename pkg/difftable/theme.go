package difftable

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

type Theme struct {
	PathStyle   lipgloss.Style
	StringStyle lipgloss.Style
	NumberStyle lipgloss.Style
	BoolStyle   lipgloss.Style
	NullStyle   lipgloss.Style
	// FallbackStyle covers sequences and anything without its own style.
	FallbackStyle lipgloss.Style

	ChangedStyle lipgloss.Style
	AddedStyle   lipgloss.Style
	RemovedStyle lipgloss.Style

	HeaderStyle lipgloss.Style
	BorderStyle lipgloss.Style
	CellStyle   lipgloss.Style
	EmptyStyle  lipgloss.Style
}

var DarkTheme = Theme{
	PathStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	StringStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	NumberStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	BoolStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	NullStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
	FallbackStyle: lipgloss.NewStyle(),

	ChangedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	AddedStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A9DC76")),
	RemovedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")),

	HeaderStyle: lipgloss.NewStyle().Bold(true),
	BorderStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	CellStyle:   lipgloss.NewStyle().Padding(0, 1),
	EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
}

func (t Theme) StatusStyle(status structdiff.Status) lipgloss.Style {
	switch status {
	case structdiff.Added:
		return t.AddedStyle
	case structdiff.Removed:
		return t.RemovedStyle
	case structdiff.Changed:
		return t.ChangedStyle
	default:
		return t.FallbackStyle
	}
}
