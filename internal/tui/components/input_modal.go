package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/photure/internal/tui/styles"
)

// SuggestFunc returns completions for the current input value
type SuggestFunc func(value string) []string

const maxSuggestions = 6

// InputModal is a text input modal with optional completions
type InputModal struct {
	visible bool
	title   string
	hint    string
	input   textinput.Model

	suggest     SuggestFunc
	suggestions []string
	selected    int
}

// NewInputModal creates a new input modal
func NewInputModal() InputModal {
	ti := textinput.New()
	ti.Placeholder = "~/Pictures/photo.jpg"
	ti.CharLimit = 1024
	ti.Width = 48
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return InputModal{
		input: ti,
	}
}

// SetSuggest installs a completion source
func (m *InputModal) SetSuggest(fn SuggestFunc) {
	m.suggest = fn
}

// Show displays the modal with a title and an initial value
func (m *InputModal) Show(title, hint, value string) {
	m.visible = true
	m.title = title
	m.hint = hint
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.refreshSuggestions()
}

// Hide dismisses the modal
func (m *InputModal) Hide() {
	m.visible = false
	m.suggestions = nil
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m InputModal) IsVisible() bool {
	return m.visible
}

// Value returns the current input value
func (m InputModal) Value() string {
	return m.input.Value()
}

// Suggestions returns the current completions
func (m InputModal) Suggestions() []string {
	return m.suggestions
}

func (m *InputModal) refreshSuggestions() {
	m.selected = 0
	m.suggestions = nil
	if m.suggest == nil {
		return
	}
	m.suggestions = m.suggest(m.input.Value())
	if len(m.suggestions) > maxSuggestions {
		m.suggestions = m.suggestions[:maxSuggestions]
	}
}

// Update handles input events, returns (modal, cmd, submitted)
func (m InputModal) Update(msg tea.Msg) (InputModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, InputModalKeys.Submit):
			return m, nil, true
		case key.Matches(keyMsg, InputModalKeys.Cancel):
			m.Hide()
			return m, nil, false
		case key.Matches(keyMsg, InputModalKeys.Complete):
			if len(m.suggestions) > 0 {
				m.input.SetValue(m.suggestions[m.selected])
				m.input.CursorEnd()
				m.refreshSuggestions()
			}
			return m, nil, false
		case key.Matches(keyMsg, InputModalKeys.Down):
			if m.selected < len(m.suggestions)-1 {
				m.selected++
			}
			return m, nil, false
		case key.Matches(keyMsg, InputModalKeys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil, false
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refreshSuggestions()
	}
	return m, cmd, false
}

// View renders the input modal
func (m InputModal) View() string {
	if !m.visible {
		return ""
	}

	const modalWidth = 52

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Bold(true).
		Width(modalWidth).
		Background(styles.SlateDark)

	inputStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	spacer := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark).
		Render("")

	parts := []string{
		titleStyle.Render(m.title),
		spacer,
		inputStyle.Render(m.input.View()),
	}

	if len(m.suggestions) > 0 {
		parts = append(parts, spacer)
		var lines []string
		for i, s := range m.suggestions {
			text := styles.Pad(styles.Truncate(s, modalWidth-2), modalWidth)
			if i == m.selected {
				lines = append(lines, lipgloss.NewStyle().Foreground(styles.White).Background(styles.SlateLight).Render(text))
			} else {
				lines = append(lines, lipgloss.NewStyle().Foreground(styles.LightGray).Background(styles.SlateDark).Render(text))
			}
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if m.hint != "" {
		parts = append(parts, spacer, styles.DimStyle.Width(modalWidth).Background(styles.SlateDark).Render(m.hint))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
