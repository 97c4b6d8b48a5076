package tui

import "github.com/mmcdole/photure/internal/tui/components"

// gridColumns computes how many cells fit across availableWidth, capped at
// the configured maximum
func gridColumns(availableWidth, maxColumns int) int {
	inner := availableWidth - components.BorderWidth
	return max(1, min(maxColumns, inner/CellWidth))
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	contentHeight := m.Height - ChromeHeight

	m.Grid.SetColumns(gridColumns(m.Width, m.maxColumns))
	m.Grid.SetSize(m.Width, contentHeight)

	// Rendered images depend on the viewer's size
	m.render.key = ""
}
