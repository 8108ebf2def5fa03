// Package ui is the terminal front end: an App model that owns the signed-in
// state and the mirrored counters list, and one Counter model per entry.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	Primary     = lipgloss.Color("#F57C00")
	Foreground  = lipgloss.Color("#ECEFF1")
	Muted       = lipgloss.Color("#78909C")
	Destructive = lipgloss.Color("#E53935")
	Success     = lipgloss.Color("#8BC34A")
)

// Styles holds the lipgloss styles used by the views
type Styles struct {
	Title    lipgloss.Style
	Nav      lipgloss.Style
	Label    lipgloss.Style
	Name     lipgloss.Style
	Value    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Nav: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Muted).
			MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(Muted),
		Name:     lipgloss.NewStyle().Foreground(Foreground).Width(24),
		Value:    lipgloss.NewStyle().Bold(true).Foreground(Success).Width(8).Align(lipgloss.Right),
		Selected: lipgloss.NewStyle().Foreground(Primary).Bold(true),
		Help:     lipgloss.NewStyle().Foreground(Muted).MarginTop(1),
		Status:   lipgloss.NewStyle().Foreground(Success),
		Error:    lipgloss.NewStyle().Foreground(Destructive),
	}
}
