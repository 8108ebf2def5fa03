package ui

import (
	"fmt"
	"strings"

	"thing-counter/internal/counter/domain/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// CounterModel renders one counter. Its only local state is the inline
// rename editor; the counter itself is read-only and replaced by the parent.
type CounterModel struct {
	counter model.Counter
	editing bool
	input   textinput.Model
	styles  Styles
}

func NewCounterModel(c model.Counter, styles Styles) CounterModel {
	ti := textinput.New()
	ti.Placeholder = "counter name"
	ti.CharLimit = 100
	ti.Width = 24
	return CounterModel{counter: c, input: ti, styles: styles}
}

func (m CounterModel) Counter() model.Counter { return m.counter }
func (m CounterModel) Editing() bool          { return m.editing }

// SetCounter replaces the displayed data and keeps the editor state
func (m *CounterModel) SetCounter(c model.Counter) {
	m.counter = c
}

func (m CounterModel) Update(msg tea.Msg) (CounterModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.editing {
		switch key.String() {
		case "enter":
			return m.submitRename()
		case "esc":
			m.stopEditing()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "+", "=":
		return m, m.request(1)
	case "-", "_":
		return m, m.request(-1)
	case "r", "e":
		m.editing = true
		m.input.SetValue(m.counter.Name)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

// submitRename ignores blank input, leaving the displayed name unchanged
func (m CounterModel) submitRename() (CounterModel, tea.Cmd) {
	name := strings.TrimSpace(m.input.Value())
	m.stopEditing()
	if name == "" || name == m.counter.Name {
		return m, nil
	}
	id := m.counter.ID
	return m, func() tea.Msg { return RenameRequested{ID: id, Name: name} }
}

func (m *CounterModel) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.SetValue("")
}

func (m CounterModel) request(delta int64) tea.Cmd {
	id := m.counter.ID
	return func() tea.Msg { return IncreaseRequested{ID: id, Delta: delta} }
}

// View renders the row; selected highlights the cursor row
func (m CounterModel) View(selected bool) string {
	cursor := "  "
	if selected {
		cursor = m.styles.Selected.Render("> ")
	}
	if m.editing {
		return cursor + m.input.View() + m.styles.Label.Render("  enter save · esc cancel")
	}
	name := m.styles.Name.Render(m.counter.Name)
	if selected {
		name = m.styles.Selected.Width(24).Render(m.counter.Name)
	}
	return fmt.Sprintf("%s%s%s  %s", cursor, name, m.styles.Value.Render(fmt.Sprint(m.counter.Value)), m.styles.Label.Render("[-] [+]"))
}
