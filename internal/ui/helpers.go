package ui

import (
	"sort"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sheetdiff-project/sheetdiff/internal/store"
)

type Base struct {
	Width  int
	Height int
	Theme  Theme
}

func (b *Base) SetSize(width, height int) {
	b.Width = width
	b.Height = height
}

func (b *Base) SetTheme(theme Theme) {
	b.Theme = theme
}

type pushType uint

const (
	Push pushType = iota
	Pop
	Replace
)

type pushViewMsg struct {
	view     View
	pushType pushType
}

type tickMsg struct{}

type alertMsg struct {
	Title string
	Err   error
}

// commitMsg announces that a sheet revision landed in the vault.
type commitMsg struct {
	Revision store.RevisionID
	Time     int64 // unix-nsec of the commit

	// sheet header
	UID, Kind, Name string
}

func PushChangeView(pushType pushType, view View) tea.Cmd {
	return func() tea.Msg {
		return pushViewMsg{
			view:     view,
			pushType: pushType,
		}
	}
}

func PushAlert(title string, err error) tea.Cmd {
	return func() tea.Msg {
		return alertMsg{Title: title, Err: err}
	}
}

// NewCommitMsg builds the message a collector sends into the program
// after every vault commit.
func NewCommitMsg(uid, kind, name string, rev store.RevisionID, unixNano int64) tea.Msg {
	return commitMsg{
		Revision: rev,
		Time:     unixNano,
		UID:      uid,
		Kind:     kind,
		Name:     name,
	}
}

func ScrollViewport(k tea.KeyMsg, vp *viewport.Model) tea.Cmd {
	switch k.String() {
	case "up", "k":
		vp.ScrollUp(1)
	case "down", "j":
		vp.ScrollDown(1)
	case "pgup":
		vp.PageUp()
	case "pgdown":
		vp.PageDown()
	case "left":
		vp.ScrollLeft(1)
	case "right":
		vp.ScrollRight(1)
	}
	return nil
}

func ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
