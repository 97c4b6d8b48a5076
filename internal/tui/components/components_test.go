package components

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/gallery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// testProjection returns six photos on March 15 followed by four on March 14
func testProjection() gallery.Projection {
	var photos []domain.Photo
	day1 := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC)
	for i := range 10 {
		ts := day1.Add(-time.Duration(i) * time.Hour)
		if i >= 6 {
			ts = day2.Add(-time.Duration(i) * time.Hour)
		}
		photos = append(photos, domain.Photo{
			ID:           fmt.Sprintf("p%d", i),
			OriginalName: fmt.Sprintf("img-%d.jpg", i),
			Size:         1024 * int64(i+1),
			UploadDate:   domain.NewTimestamp(ts),
		})
	}
	return gallery.Project(photos, nil, domain.GroupByDate, time.UTC)
}

func newTestGrid() Grid {
	g := NewGrid(4)
	g.SetFocused(true)
	g.SetSize(80, 30)
	g.SetProjection(testProjection())
	return g
}

func TestGrid_Navigation(t *testing.T) {
	g := newTestGrid()
	require.Len(t, g.Projection().Groups, 2)

	tests := []struct {
		name  string
		start int
		key   tea.KeyMsg
		want  int
	}{
		{"down keeps column", 1, runes("j"), 5},
		{"down clamps to short row", 3, runes("j"), 5},
		{"down crosses group header", 5, runes("j"), 7},
		{"up crosses group header", 7, tea.KeyMsg{Type: tea.KeyUp}, 5},
		{"up at top stays", 2, runes("k"), 2},
		{"right moves one photo", 3, runes("l"), 4},
		{"left at start stays", 0, runes("h"), 0},
		{"end goes to last photo", 0, runes("G"), 9},
		{"home goes to first photo", 8, runes("g"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := g
			g.SetCursor(tt.start)
			g, _ = g.Update(tt.key)
			assert.Equal(t, tt.want, g.Cursor())
		})
	}
}

func TestGrid_NearEnd(t *testing.T) {
	g := newTestGrid()

	assert.False(t, g.NearEnd())
	g.SetCursor(4)
	assert.True(t, g.NearEnd())
	g.SetCursor(9)
	assert.True(t, g.NearEnd())

	empty := NewGrid(4)
	assert.False(t, empty.NearEnd())
}

func TestGrid_SetProjectionKeepsSelection(t *testing.T) {
	g := newTestGrid()
	g.SetCursor(2)
	selected, _ := g.Selected()

	oldest := &domain.SortSpec{Field: domain.SortByDate, Order: domain.SortAsc}
	g.SetProjection(gallery.Project(testProjection().Flat, oldest, domain.GroupByDate, time.UTC))

	now, ok := g.Selected()
	require.True(t, ok)
	assert.Equal(t, selected.ID, now.ID)
	assert.Equal(t, 7, g.Cursor())

	// Selected photo (p4) removed: cursor clamps
	g.SetCursor(5)
	g.SetProjection(gallery.Project(testProjection().Flat[:3], nil, domain.GroupByDate, time.UTC))
	assert.Equal(t, 2, g.Cursor())
}

func TestGrid_SetColumns(t *testing.T) {
	g := newTestGrid()
	g.SetColumns(2)
	assert.Equal(t, 2, g.Columns())

	g.SetCursor(0)
	g, _ = g.Update(runes("j"))
	assert.Equal(t, 2, g.Cursor())
}

func TestGrid_View(t *testing.T) {
	g := newTestGrid()
	g.SetBreadcrumb("Photos · 10 of 10")
	view := g.View()

	assert.Contains(t, view, "Photos · 10 of 10")
	assert.Contains(t, view, "March 15, 2024")
	assert.Contains(t, view, "6 photos")
	assert.Contains(t, view, "img-0.jpg")

	t.Run("scroll indicator", func(t *testing.T) {
		g := g
		g.SetSize(80, 8)
		g.SetCursor(9)
		assert.Contains(t, g.View(), "↑ more")
	})

	t.Run("empty message", func(t *testing.T) {
		g := NewGrid(4)
		g.SetSize(80, 10)
		g.SetEmptyMessage("No photos yet")
		assert.Contains(t, g.View(), "No photos yet")
	})
}

func TestGrid_Filter(t *testing.T) {
	g := newTestGrid()

	g.ToggleFilter()
	assert.True(t, g.IsFilterTyping())

	// Typing goes to the filter, not navigation
	g, _ = g.Update(runes("j"))
	assert.Equal(t, "j", g.FilterQuery())
	assert.Equal(t, 0, g.Cursor())

	// Enter keeps the filter but returns to navigation
	g, _ = g.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, g.IsFiltering())
	assert.False(t, g.IsFilterTyping())
	assert.Equal(t, "j", g.FilterQuery())

	g, _ = g.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, g.IsFiltering())
	assert.Empty(t, g.FilterQuery())
}

func TestSortModal(t *testing.T) {
	m := NewSortModal()

	handled, sel := m.HandleKey("j")
	assert.False(t, handled, "hidden modal ignores keys")
	assert.Nil(t, sel)

	m.Show(&domain.SortSpec{Field: domain.SortBySize, Order: domain.SortDesc})
	assert.True(t, m.IsVisible())
	assert.Contains(t, m.View(), "✓ Largest first")

	m.HandleKey("j")
	handled, sel = m.HandleKey("enter")
	assert.True(t, handled)
	require.NotNil(t, sel)
	assert.Equal(t, "size:asc", sel.Spec.String())
	assert.False(t, m.IsVisible())

	t.Run("default has no spec", func(t *testing.T) {
		m := NewSortModal()
		m.Show(nil)
		_, sel := m.HandleKey("enter")
		require.NotNil(t, sel)
		assert.Nil(t, sel.Spec)
	})

	t.Run("escape cancels", func(t *testing.T) {
		m := NewSortModal()
		m.Show(nil)
		handled, sel := m.HandleKey("esc")
		assert.True(t, handled)
		assert.Nil(t, sel)
		assert.False(t, m.IsVisible())
	})
}

func TestInputModal(t *testing.T) {
	m := NewInputModal()
	m.SetSuggest(func(value string) []string {
		return []string{value + "a.jpg", value + "b.jpg"}
	})
	m.Show("Upload photos", "tab complete", "/tmp/")
	require.Equal(t, []string{"/tmp/a.jpg", "/tmp/b.jpg"}, m.Suggestions())

	var submitted bool
	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, submitted)

	m, _, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/tmp/b.jpg", m.Value())

	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, submitted)
	assert.Contains(t, m.View(), "Upload photos")

	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, submitted)
	assert.False(t, m.IsVisible())
}
