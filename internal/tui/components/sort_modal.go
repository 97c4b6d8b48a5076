package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/tui/styles"
)

// SortOption is one row of the sort modal. A nil Spec is server order.
type SortOption struct {
	Label string
	Spec  *domain.SortSpec
}

// SortOptions returns the rows offered by the sort modal
func SortOptions() []SortOption {
	return []SortOption{
		{Label: "Default", Spec: nil},
		{Label: "Newest first", Spec: &domain.SortSpec{Field: domain.SortByDate, Order: domain.SortDesc}},
		{Label: "Oldest first", Spec: &domain.SortSpec{Field: domain.SortByDate, Order: domain.SortAsc}},
		{Label: "Largest first", Spec: &domain.SortSpec{Field: domain.SortBySize, Order: domain.SortDesc}},
		{Label: "Smallest first", Spec: &domain.SortSpec{Field: domain.SortBySize, Order: domain.SortAsc}},
	}
}

// SortSelection represents the user's sort choice
type SortSelection struct {
	Spec *domain.SortSpec
}

// SortModal is a small popup for choosing sort order
type SortModal struct {
	visible bool
	options []SortOption
	cursor  int
	active  string
}

// NewSortModal creates a new sort modal
func NewSortModal() SortModal {
	return SortModal{options: SortOptions()}
}

// Show displays the modal with the cursor on the active sort
func (m *SortModal) Show(active *domain.SortSpec) {
	m.visible = true
	m.active = active.String()
	m.cursor = 0
	for i, opt := range m.options {
		if opt.Spec.String() == m.active {
			m.cursor = i
			break
		}
	}
}

// Hide dismisses the modal
func (m *SortModal) Hide() {
	m.visible = false
}

// IsVisible returns whether the modal is shown
func (m SortModal) IsVisible() bool {
	return m.visible
}

// HandleKey processes a key press, returns (handled, selection).
// If selection is non-nil, the user confirmed a choice.
func (m *SortModal) HandleKey(key string) (handled bool, selection *SortSelection) {
	if !m.visible {
		return false, nil
	}

	switch key {
	case "j", "down":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
		return true, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return true, nil
	case "enter":
		m.visible = false
		return true, &SortSelection{Spec: m.options[m.cursor].Spec}
	case "esc", "s":
		m.visible = false
		return true, nil
	}

	return true, nil // consume all keys when visible
}

// View renders the sort modal
func (m SortModal) View() string {
	if !m.visible {
		return ""
	}

	var lines []string
	for i, opt := range m.options {
		isActive := opt.Spec.String() == m.active

		prefix := "  "
		if isActive {
			prefix = "✓ "
		}
		text := styles.Pad(prefix+opt.Label, 20)

		var style lipgloss.Style
		switch {
		case i == m.cursor:
			style = lipgloss.NewStyle().Foreground(styles.White).Background(styles.SlateLight)
		case isActive:
			style = lipgloss.NewStyle().Foreground(styles.Amber)
		default:
			style = lipgloss.NewStyle().Foreground(styles.LightGray)
		}
		lines = append(lines, style.Render(text))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(0, 1).
		Render(styles.ModalTitleStyle.Render("Sort by") + "\n" + strings.Join(lines, "\n"))
}
