package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/gallery"
	"github.com/mmcdole/photure/internal/tui/styles"
)

// Layout constants for grid
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// Breadcrumb line at top of content area
	BreadcrumbLines = 1

	// Rows from the bottom at which NearEnd reports true
	nearEndRows = 2

	minCellWidth = 12
)

type rowKind int

const (
	rowHeader rowKind = iota
	rowPhotos
	rowSpacer
)

// gridRow is one rendered line: a group header, a run of photos from
// proj.Flat[start:end], or a blank separator
type gridRow struct {
	kind  rowKind
	group int
	start int
	end   int
}

// Grid renders the grouped projection as rows of photo cells. The cursor
// is an index into the projection's flat order.
type Grid struct {
	proj    gallery.Projection
	rows    []gridRow
	columns int

	cursor     int
	offset     int // first visible row
	maxVisible int

	width   int
	height  int
	focused bool

	breadcrumb string
	emptyMsg   string
	footer     string

	filterActive bool
	filterInput  textinput.Model
}

// NewGrid creates a new grid component
func NewGrid(columns int) Grid {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	if columns < 1 {
		columns = 4
	}
	return Grid{
		columns:     columns,
		filterInput: ti,
		emptyMsg:    "No photos",
	}
}

// SetProjection replaces the displayed photos, keeping the selected photo
// when it is still present
func (g *Grid) SetProjection(proj gallery.Projection) {
	selected, hadSelection := g.Selected()

	g.proj = proj
	g.rebuildRows()

	if hadSelection {
		if i := proj.Index(selected.ID); i >= 0 {
			g.cursor = i
		}
	}
	g.clampCursor()
	g.ensureVisible()
}

// Projection returns the displayed projection
func (g Grid) Projection() gallery.Projection {
	return g.proj
}

// SetColumns sets the number of cells per row
func (g *Grid) SetColumns(n int) {
	if n < 1 || n == g.columns {
		return
	}
	g.columns = n
	g.rebuildRows()
	g.ensureVisible()
}

// Columns returns the number of cells per row
func (g Grid) Columns() int {
	return g.columns
}

// SetSize updates the component dimensions
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.recalcMaxVisible()
	g.ensureVisible()
}

// SetBreadcrumb sets the text on the first line of the grid
func (g *Grid) SetBreadcrumb(crumb string) {
	g.breadcrumb = crumb
}

// SetEmptyMessage sets the text shown when there are no photos
func (g *Grid) SetEmptyMessage(msg string) {
	g.emptyMsg = msg
}

// SetFooter sets a line shown after the last row, e.g. a load-more hint
func (g *Grid) SetFooter(footer string) {
	g.footer = footer
}

// SetFocused sets the focus state
func (g *Grid) SetFocused(focused bool) {
	g.focused = focused
}

// recalcMaxVisible calculates maxVisible accounting for breadcrumb and filter bar
func (g *Grid) recalcMaxVisible() {
	interiorHeight := g.height - BorderHeight
	g.maxVisible = interiorHeight - ScrollIndicatorLines - BreadcrumbLines
	if g.filterActive {
		g.maxVisible--
	}
	if g.maxVisible < 1 {
		g.maxVisible = 1
	}
}

func (g *Grid) rebuildRows() {
	g.rows = nil
	for gi, group := range g.proj.Groups {
		if gi > 0 {
			g.rows = append(g.rows, gridRow{kind: rowSpacer, group: gi})
		}
		g.rows = append(g.rows, gridRow{kind: rowHeader, group: gi})
		for i := 0; i < len(group.Photos); i += g.columns {
			start := group.Offset + i
			end := min(start+g.columns, group.Offset+len(group.Photos))
			g.rows = append(g.rows, gridRow{kind: rowPhotos, group: gi, start: start, end: end})
		}
	}
}

// Cursor returns the selected flat index
func (g Grid) Cursor() int {
	return g.cursor
}

// SetCursor moves the selection to flat index i
func (g *Grid) SetCursor(i int) {
	g.cursor = i
	g.clampCursor()
	g.ensureVisible()
}

// Selected returns the selected photo
func (g Grid) Selected() (domain.Photo, bool) {
	if g.cursor < 0 || g.cursor >= len(g.proj.Flat) {
		return domain.Photo{}, false
	}
	return g.proj.Flat[g.cursor], true
}

// IsEmpty returns true if there are no photos
func (g Grid) IsEmpty() bool {
	return len(g.proj.Flat) == 0
}

// NearEnd reports whether the cursor is within the last rows of photos
func (g Grid) NearEnd() bool {
	if g.IsEmpty() {
		return false
	}
	row := g.rowOf(g.cursor)
	remaining := 0
	for _, r := range g.rows[row+1:] {
		if r.kind == rowPhotos {
			remaining++
		}
	}
	return remaining < nearEndRows
}

func (g *Grid) clampCursor() {
	n := len(g.proj.Flat)
	if n == 0 {
		g.cursor = 0
		return
	}
	g.cursor = max(0, min(g.cursor, n-1))
}

// rowOf returns the index of the photo row containing flat index i
func (g Grid) rowOf(i int) int {
	for ri, r := range g.rows {
		if r.kind == rowPhotos && i >= r.start && i < r.end {
			return ri
		}
	}
	return 0
}

// ensureVisible scrolls so the cursor row and, on the first photo row of
// a group, its header are visible
func (g *Grid) ensureVisible() {
	if len(g.rows) == 0 {
		g.offset = 0
		return
	}
	row := g.rowOf(g.cursor)
	top := row
	if row > 0 && g.rows[row-1].kind == rowHeader {
		top = row - 1
	}
	if top < g.offset {
		g.offset = top
	}
	if row >= g.offset+g.maxVisible {
		g.offset = row - g.maxVisible + 1
	}
	g.offset = max(0, min(g.offset, len(g.rows)-1))
}

// moveRows moves the cursor by delta photo rows, keeping its column
func (g *Grid) moveRows(delta int) {
	if g.IsEmpty() {
		return
	}
	ri := g.rowOf(g.cursor)
	col := g.cursor - g.rows[ri].start

	step := 1
	if delta < 0 {
		step = -1
		delta = -delta
	}
	target := ri
	for i := ri + step; i >= 0 && i < len(g.rows) && delta > 0; i += step {
		if g.rows[i].kind == rowPhotos {
			target = i
			delta--
		}
	}

	r := g.rows[target]
	g.cursor = min(r.start+col, r.end-1)
	g.ensureVisible()
}

// ToggleFilter activates the filter input
func (g *Grid) ToggleFilter() {
	g.filterActive = true
	g.filterInput.Focus()
	g.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (g Grid) IsFiltering() bool {
	return g.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (g Grid) IsFilterTyping() bool {
	return g.filterActive && g.filterInput.Focused()
}

// FilterQuery returns the active filter text
func (g Grid) FilterQuery() string {
	if !g.filterActive {
		return ""
	}
	return g.filterInput.Value()
}

// ClearFilter deactivates the filter and shows all photos
func (g *Grid) ClearFilter() {
	g.filterActive = false
	g.filterInput.SetValue("")
	g.filterInput.Blur()
	g.recalcMaxVisible()
}

// Init initializes the component
func (g Grid) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	if !g.focused {
		return g, nil
	}

	// Filter input when active AND focused (typing mode)
	if g.filterActive && g.filterInput.Focused() {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, GridKeys.Escape):
				g.ClearFilter()
				return g, nil
			case key.Matches(keyMsg, GridKeys.Enter):
				g.filterInput.Blur()
				return g, nil
			case keyMsg.String() == "backspace":
				if g.filterInput.Value() == "" {
					g.ClearFilter()
					return g, nil
				}
			}
		}

		var cmd tea.Cmd
		g.filterInput, cmd = g.filterInput.Update(msg)
		return g, cmd
	}

	// Filter active but blurred (navigation mode with filter results)
	if g.filterActive {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, GridKeys.Escape):
				g.ClearFilter()
				return g, nil
			case key.Matches(keyMsg, GridKeys.Filter):
				g.filterInput.Focus()
				return g, nil
			}
		}
	}

	count := len(g.proj.Flat)
	if count == 0 {
		return g, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, GridKeys.Down):
			g.moveRows(1)
		case key.Matches(keyMsg, GridKeys.Up):
			g.moveRows(-1)
		case key.Matches(keyMsg, GridKeys.Right):
			if g.cursor < count-1 {
				g.cursor++
				g.ensureVisible()
			}
		case key.Matches(keyMsg, GridKeys.Left):
			if g.cursor > 0 {
				g.cursor--
				g.ensureVisible()
			}
		case key.Matches(keyMsg, GridKeys.Home):
			g.cursor = 0
			g.offset = 0
		case key.Matches(keyMsg, GridKeys.End):
			g.cursor = count - 1
			g.ensureVisible()
		case key.Matches(keyMsg, GridKeys.HalfDown):
			g.moveRows(max(1, g.maxVisible/2))
		case key.Matches(keyMsg, GridKeys.HalfUp):
			g.moveRows(-max(1, g.maxVisible/2))
		}
	}

	return g, nil
}

// View renders the component
func (g Grid) View() string {
	style := styles.InactiveBorder
	if g.focused {
		style = styles.ActiveBorder
	}

	frameW, frameH := style.GetFrameSize()

	return style.
		Width(max(0, g.width-frameW)).
		Height(max(0, g.height-frameH)).
		Render(g.renderRows())
}

func (g Grid) renderRows() string {
	innerWidth := max(minCellWidth, g.width-BorderWidth)

	breadcrumbLine := " "
	if g.breadcrumb != "" {
		breadcrumbLine = styles.AccentStyle.Render(styles.Truncate(g.breadcrumb, innerWidth))
	}

	if g.IsEmpty() {
		msg := g.emptyMsg
		if g.FilterQuery() != "" {
			msg = "No matches"
		}
		content := breadcrumbLine + "\n \n" + styles.DimStyle.Render(msg) + "\n "
		if g.filterActive {
			content += "\n" + g.renderFilterBar()
		}
		return content
	}

	end := min(g.offset+g.maxVisible, len(g.rows))
	lines := make([]string, 0, end-g.offset)
	for _, r := range g.rows[g.offset:end] {
		lines = append(lines, g.renderRow(r, innerWidth))
	}

	header := " "
	if g.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	switch {
	case end < len(g.rows):
		footer = styles.DimStyle.Render("↓ more")
	case g.footer != "":
		footer = g.footer
	}

	content := breadcrumbLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if g.filterActive {
		content += "\n" + g.renderFilterBar()
	}
	return content
}

func (g Grid) renderRow(r gridRow, width int) string {
	switch r.kind {
	case rowSpacer:
		return " "
	case rowHeader:
		group := g.proj.Groups[r.group]
		return styles.GroupTitleStyle.Render(group.Label) + styles.GroupCountStyle.Render("  "+group.Subtitle())
	}

	cellWidth := max(minCellWidth, width/g.columns)
	cells := make([]string, 0, r.end-r.start)
	for i := r.start; i < r.end; i++ {
		cells = append(cells, g.renderCell(g.proj.Flat[i], i == g.cursor, cellWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (g Grid) renderCell(p domain.Photo, selected bool, width int) string {
	style := styles.CellStyle
	if selected && g.focused {
		style = styles.CellSelectedStyle
	}
	// Padding(0,1) takes two columns
	inner := width - 2
	size := p.FormattedSize()
	nameWidth := inner - lipgloss.Width(size) - 1
	var text string
	if nameWidth >= 4 {
		text = styles.Pad(styles.Truncate(p.DisplayName(), nameWidth), nameWidth) + " " + size
	} else {
		text = styles.Pad(styles.Truncate(p.DisplayName(), inner), inner)
	}
	return style.Render(text)
}

// renderFilterBar renders the filter input bar
func (g Grid) renderFilterBar() string {
	countStr := ""
	if g.FilterQuery() != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d]", len(g.proj.Flat)))
	}
	return g.filterInput.View() + countStr
}
