package ui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sheetdiff-project/sheetdiff/internal/service"
	"github.com/sheetdiff-project/sheetdiff/internal/store"
	"github.com/sheetdiff-project/sheetdiff/internal/util"
	"github.com/sheetdiff-project/sheetdiff/pkg/difftable"
)

const (
	arrowDown  = "▾"
	arrowRight = "▸"
	pinMark    = "◆"

	pageScrollSkip = 5
	sizeSkip       = 2

	noPinBanner = `
      .-----------.
      |  pick a   |   press SPACE on a sheet
      |  baseline |      or revision to pin it
      '-----------'`

	noTargetBanner = `
      .-----------.
      |  baseline |   move the cursor to any
      |  pinned   |      sheet or revision
      '-----------'`
)

// selection addresses one side of a comparison: a sheet at a revision.
type selection struct {
	uid   string
	label string
	rev   store.RevisionID
}

type revInfo struct {
	id   store.RevisionID
	time time.Time
}

type sheetEntry struct {
	uid      string
	name     string
	lastSeen time.Time
	revs     []revInfo
	open     bool
}

type kindEntry struct {
	open   bool
	sheets map[string]*sheetEntry
}

// RosterView is the working screen: the left pane lists sheets grouped
// by kind (expandable down to single revisions), the right pane shows
// the difference table between the pinned baseline and the cursor.
type RosterView struct {
	Base

	vault *service.VaultService

	left, right viewport.Model
	leftExtra   int

	// tree data
	kinds map[string]*kindEntry
	order []string

	// ui state
	cursor     int
	focusRight bool
	fullscreen bool

	pin *selection

	// last computed comparison; rendered lazily on selection change
	lastPair string
	lastDiff string
}

var _ View = (*RosterView)(nil)

func NewRosterView(vault *service.VaultService) *RosterView {
	return &RosterView{
		vault: vault,

		left:  viewport.New(5, 5), // will be overwritten by SetSize
		right: viewport.New(5, 5), // will be overwritten by SetSize

		kinds: make(map[string]*kindEntry),
	}
}

func (rv *RosterView) Breadcrumb() string {
	return "roster"
}

func (rv *RosterView) calculateViewportSizes() {
	if rv.fullscreen {
		rv.right.Width = rv.Width
		rv.right.Height = rv.Height
	} else {
		leftWidth := (rv.Width/2 + rv.leftExtra) - 2           // 2 for border right and left
		rv.left.Width, rv.left.Height = leftWidth, rv.Height-2 // -2 for viewport border

		rightWidth := rv.Width - leftWidth - 4                    // 4 for border right and left
		rv.right.Width, rv.right.Height = rightWidth, rv.Height-2 // -2 for viewport border
	}
}

// SetSize is overridden from Base so the two panes can share the width
// according to the current mode (fullscreen or split).
func (rv *RosterView) SetSize(width, height int) {
	rv.Base.SetSize(width, height)
	rv.calculateViewportSizes()
}

func (rv *RosterView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch v := msg.(type) {
	case commitMsg:
		rv.ingest(v)

	case tickMsg:
		// only the activity fade changes; handled in renderLeft

	case tea.KeyMsg:
		if cmd := rv.handleKey(v); cmd != nil {
			return rv, cmd
		}

	case tea.MouseMsg: /* ignore */
	}

	rv.renderLeft()
	if cmd := rv.renderRight(); cmd != nil {
		return rv, cmd
	}
	return rv, nil
}

func (rv *RosterView) View() string {
	if rv.fullscreen {
		return rv.right.View()
	}
	leftBox := ternary(rv.focusRight, rv.Theme.BorderIdleContainerStyle, rv.Theme.BorderActiveContainerStyle).
		Render(rv.left.View())
	rightBox := ternary(rv.focusRight, rv.Theme.BorderActiveContainerStyle, rv.Theme.BorderIdleContainerStyle).
		Render(rv.right.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
}

func (rv *RosterView) KeyMap() string {
	return NewShortcuts().
		// general shortcuts
		Add("q", "quit").
		Add("⇥", "focus").
		Add("␣", ternary(rv.pin == nil, "pin", "unpin")).
		Add("f", "fullscreen").

		// left-only shortcuts
		AddIf(!rv.focusRight, "↑/↓/pgup/pgdn", "move").
		AddIf(!rv.focusRight, "←/→/⏎", "collapse").

		// right-only shortcuts
		AddIf(rv.focusRight, "↑/↓/←/→", "scroll").
		Render(rv.Theme)
}

func (rv *RosterView) handleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "tab":
		rv.focusRight = !rv.focusRight
	case "f":
		rv.fullscreen = !rv.fullscreen
		rv.SetSize(rv.Width, rv.Height)
	case " ":
		rv.togglePin()
	case "+":
		rv.leftExtra = util.Clamp(rv.leftExtra+sizeSkip, -(rv.Width/2)+8, (rv.Width/2)-8)
		rv.calculateViewportSizes()
	case "-":
		rv.leftExtra = util.Clamp(rv.leftExtra-sizeSkip, -(rv.Width/2)+8, (rv.Width/2)-8)
		rv.calculateViewportSizes()
	default:
		if rv.focusRight {
			return ScrollViewport(k, &rv.right)
		}
		return rv.navigateLeft(k)
	}
	return nil
}

func (rv *RosterView) navigateLeft(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "up", "k":
		if rv.cursor > 0 {
			rv.cursor--
			rv.keepVisible()
		}
	case "down", "j":
		if rv.cursor < rv.totalLines()-1 {
			rv.cursor++
			rv.keepVisible()
		}
	case "pgup":
		if rv.cursor > 0 {
			rv.cursor = util.Clamp(rv.cursor-pageScrollSkip, 0, rv.totalLines()-1)
			rv.keepVisible()
		}
	case "pgdown":
		if rv.cursor < rv.totalLines()-1 {
			rv.cursor = util.Clamp(rv.cursor+pageScrollSkip, 0, rv.totalLines()-1)
			rv.keepVisible()
		}
	case "left":
		rv.toggle(false)
	case "right", "enter", "l":
		rv.toggle(true)
	}
	return nil
}

func (rv *RosterView) keepVisible() {
	if rv.cursor < rv.left.YOffset {
		rv.left.YOffset = rv.cursor
	}
	if rv.cursor >= rv.left.YOffset+rv.left.Height {
		rv.left.YOffset = rv.cursor - rv.left.Height + 1
	}
}

// togglePin pins the cursor's selection as the comparison baseline, or
// clears the pin when one is already set.
func (rv *RosterView) togglePin() {
	if rv.pin != nil {
		rv.pin = nil
		return
	}
	if sel := rv.currentSelection(); sel != nil {
		rv.pin = sel
	}
}

func (rv *RosterView) ingest(c commitMsg) {
	kind := c.Kind
	if kind == "" {
		kind = "character"
	}

	ke := rv.kinds[kind]
	if ke == nil {
		ke = &kindEntry{open: true, sheets: map[string]*sheetEntry{}}
		rv.kinds[kind] = ke
		rv.order = append(rv.order, kind)
		slices.Sort(rv.order)
	}
	se := ke.sheets[c.UID]
	if se == nil {
		se = &sheetEntry{uid: c.UID, name: c.Name}
		ke.sheets[c.UID] = se
	}
	se.revs = append(se.revs, revInfo{id: c.Revision, time: time.Unix(0, c.Time)})
	se.lastSeen = time.Unix(0, c.Time)
}

// toggle expands or collapses the tree node under the cursor.
func (rv *RosterView) toggle(exp bool) {
	line := 0
	for _, k := range rv.order {
		if line == rv.cursor {
			rv.kinds[k].open = exp
			return
		}
		line++
		ke := rv.kinds[k]
		if !ke.open {
			continue
		}
		for _, uid := range sortedKeys(ke.sheets) {
			se := ke.sheets[uid]
			if line == rv.cursor {
				se.open = !se.open
				return
			}
			line++
			if se.open {
				line += len(se.revs)
			}
		}
	}
}

func (rv *RosterView) totalLines() int {
	n := 0
	for _, k := range rv.order {
		n++
		ke := rv.kinds[k]
		if !ke.open {
			continue
		}
		for _, uid := range sortedKeys(ke.sheets) {
			n++
			if ke.sheets[uid].open {
				n += len(ke.sheets[uid].revs)
			}
		}
	}
	return n
}

// currentSelection resolves the cursor to a (sheet, revision) pair. A
// sheet line means its latest revision; a kind line resolves to
// nothing.
func (rv *RosterView) currentSelection() *selection {
	line := 0
	for _, k := range rv.order {
		if line == rv.cursor {
			return nil // kind header
		}
		line++
		ke := rv.kinds[k]
		if !ke.open {
			continue
		}
		for _, uid := range sortedKeys(ke.sheets) {
			se := ke.sheets[uid]
			if line == rv.cursor {
				if len(se.revs) == 0 {
					return nil
				}
				latest := se.revs[len(se.revs)-1]
				return &selection{uid: se.uid, rev: latest.id, label: se.name}
			}
			line++
			if se.open {
				for _, rev := range se.revs {
					if line == rv.cursor {
						return &selection{
							uid:   se.uid,
							rev:   rev.id,
							label: fmt.Sprintf("%s@%s", se.name, rev.id),
						}
					}
					line++
				}
			}
		}
	}
	return nil
}

func (rv *RosterView) renderLeft() {
	var b strings.Builder
	now := time.Now()
	line := 0

	for _, kind := range rv.order {
		ke := rv.kinds[kind]

		isSelected := rv.cursor == line
		isExpanded := ke.open

		_, _ = fmt.Fprintf(&b, "%s %s %s\n",
			ternary(isSelected, rv.Theme.ListCurrentArrowTextStyle.Render(arrowRight), " "),
			ternary(isExpanded, arrowDown, arrowRight),
			rv.Theme.ListKindTextStyle.Render(kind),
		)

		line++
		if !isExpanded {
			continue
		}

		for _, uid := range sortedKeys(ke.sheets) {
			se := ke.sheets[uid]

			isSelected := rv.cursor == line
			isExpanded := se.open

			// orange blink if recently committed
			style := rv.Theme.ListSheetTextStyle
			if now.Sub(se.lastSeen) < 3*time.Second {
				style = rv.Theme.ListActivityTextStyle
			}

			info := fmt.Sprintf("%s revs | %s",
				rv.Theme.ListRevisionTextStyle.Render(strconv.Itoa(len(se.revs))),
				rv.Theme.MutedTextStyle.Render(humanize.Time(se.lastSeen)))

			_, _ = fmt.Fprintf(&b, "%s   %s %s %-28s %s\n",
				ternary(isSelected, rv.Theme.ListCurrentArrowTextStyle.Render(arrowRight), " "),
				ternary(isExpanded, arrowDown, arrowRight),
				rv.pinIndicator(se.uid, se.latestID()),
				style.Render(se.name),
				info)
			line++

			if se.open {
				for i, rev := range se.revs {
					isSelected := rv.cursor == line

					isInitialRev := i == 0
					relTimeStr := ""
					if !isInitialRev {
						sub := rev.time.Sub(se.revs[i-1].time).Truncate(time.Second)
						relTimeStr = fmt.Sprintf(" +%s", sub)
					}

					_, _ = fmt.Fprintf(&b, "       %s %s: %s%s%s (%s%s)\n",
						rv.pinIndicator(se.uid, rev.id),
						rv.Theme.MutedTextStyle.Render(rev.time.Format("02.01.2006 15:04:05")),
						ternary(isSelected, rv.Theme.ListCurrentArrowTextStyle.Render("["), " "),
						ternary(isSelected, rv.Theme.ListCurrentArrowTextStyle, rv.Theme.ListRevisionTextStyle).
							Render(rev.id.String()),
						ternary(isSelected, rv.Theme.ListCurrentArrowTextStyle.Render("]"), " "),
						humanize.Time(rev.time),
						rv.Theme.MutedTextStyle.Render(relTimeStr),
					)
					line++
				}
			}
		}
	}
	rv.left.SetContent(b.String())
}

func (se *sheetEntry) latestID() store.RevisionID {
	if len(se.revs) == 0 {
		return 0
	}
	return se.revs[len(se.revs)-1].id
}

func (rv *RosterView) pinIndicator(uid string, rev store.RevisionID) string {
	if rv.pin != nil && rv.pin.uid == uid && rv.pin.rev == rev {
		return rv.Theme.ListPinTextStyle.Render(pinMark)
	}
	return "•"
}

// renderRight recomputes the comparison only when the selection pair
// actually changed; otherwise the cached table is reused.
func (rv *RosterView) renderRight() tea.Cmd {
	if rv.pin == nil {
		rv.right.SetContent(rv.Theme.MutedTextStyle.Render(noPinBanner))
		return nil
	}
	current := rv.currentSelection()
	if current == nil {
		rv.right.SetContent(rv.Theme.MutedTextStyle.Render(noTargetBanner))
		return nil
	}

	pair := fmt.Sprintf("%s@%s -> %s@%s", rv.pin.uid, rv.pin.rev, current.uid, current.rev)
	if pair != rv.lastPair {
		set, err := rv.vault.Compare(context.Background(),
			rv.pin.uid, rv.pin.rev, current.uid, current.rev)
		if err != nil {
			return PushAlert("compare", err)
		}
		header := fmt.Sprintf("%s  %s  %s\n\n",
			rv.Theme.PrimaryTextStyle.Render(rv.pin.label),
			rv.Theme.MutedTextStyle.Render("⇢"),
			rv.Theme.PrimaryTextStyle.Render(current.label))
		rv.lastPair = pair
		rv.lastDiff = header + difftable.Render(set, rv.Theme.Diff)
	}

	rv.right.SetContent(rv.lastDiff)
	return nil
}
