package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sheetdiff-project/sheetdiff/pkg/difftable"
)

// Some predefined colors

var (
	ColorRed         = lipgloss.Color("1")
	ColorWhite       = lipgloss.Color("7")
	ColorBrightBlue  = lipgloss.Color("33")
	ColorLightGray   = lipgloss.Color("243")
	ColorGray        = lipgloss.Color("238")
	ColorMutedPurple = lipgloss.Color("92")
	ColorOrange      = lipgloss.Color("214")
	ColorGreen       = lipgloss.Color("35")
)

type Theme struct {
	ListKindTextStyle         lipgloss.Style
	ListSheetTextStyle        lipgloss.Style
	ListActivityTextStyle     lipgloss.Style
	ListRevisionTextStyle     lipgloss.Style
	ListCurrentArrowTextStyle lipgloss.Style
	ListPinTextStyle          lipgloss.Style

	AlertContainerStyle        lipgloss.Style
	BorderActiveContainerStyle lipgloss.Style
	BorderIdleContainerStyle   lipgloss.Style

	MutedTextStyle   lipgloss.Style
	ErrorTextStyle   lipgloss.Style
	PrimaryTextStyle lipgloss.Style

	BreadcrumbBarStyle lipgloss.Style
	HelpBarStyle       lipgloss.Style

	// Diff is handed through to the difference table renderer.
	Diff difftable.Theme
}

var DarkTheme = Theme{
	ListKindTextStyle: lipgloss.NewStyle().
		Bold(true),
	ListSheetTextStyle: lipgloss.NewStyle().
		Foreground(ColorLightGray),
	ListActivityTextStyle: lipgloss.NewStyle().
		Foreground(ColorOrange).
		Bold(true),
	ListRevisionTextStyle: lipgloss.NewStyle().
		Foreground(ColorMutedPurple),
	ListCurrentArrowTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),
	ListPinTextStyle: lipgloss.NewStyle().
		Foreground(ColorGreen).
		Bold(true),

	AlertContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ColorRed).
		Padding(4, 4),
	BorderActiveContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBrightBlue),
	BorderIdleContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray),

	MutedTextStyle: lipgloss.NewStyle().
		Foreground(ColorLightGray),
	ErrorTextStyle: lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true),
	PrimaryTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),

	BreadcrumbBarStyle: lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorBrightBlue).
		Foreground(ColorWhite),
	HelpBarStyle: lipgloss.NewStyle().
		Padding(0, 1),

	Diff: difftable.DarkTheme,
}
