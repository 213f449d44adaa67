package components

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Component is a resizable widget fed by the controller. Update receives the
// same messages as the page that hosts it.
type Component interface {
	tea.Model
	Resize(width, height int)
}
