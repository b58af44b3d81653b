// Package difftable renders a [structdiff.Set] as a four-column table
// (path, status, old value, new value). It only produces strings; the
// caller decides where they end up.
package difftable

import "github.com/sheetdiff-project/sheetdiff/pkg/structdiff"

// Render renders [set] as a bordered table using the default options.
func Render(set structdiff.Set, theme Theme) string {
	return RenderWithOptions(set, theme, DefaultRenderOptions)
}
