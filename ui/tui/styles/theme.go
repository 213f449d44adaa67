package styles

import (
	"github.com/charmbracelet/lipgloss"

	"vtlookup/internal/engine"
)

var (
	Subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	Highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	Brand     = lipgloss.Color("#3b6cf6")
	Base      = lipgloss.Color("#444")

	TitleStyle = lipgloss.NewStyle().
			MarginLeft(1).
			MarginRight(5).
			Padding(0, 1).
			Italic(true).
			Foreground(lipgloss.Color("#FFF7DB"))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Highlight).
			Padding(1, 2).
			Margin(1, 1)

	HintStyle = lipgloss.NewStyle().Foreground(Subtle)

	verdictStyle = lipgloss.NewStyle().Bold(true)
)

// verdictColors maps engine statuses to ANSI-256 colors. Anything else is
// treated as OK.
var verdictColors = map[string]lipgloss.Color{
	engine.StatusHealthy:  lipgloss.Color("46"),
	engine.StatusWarning:  lipgloss.Color("220"),
	engine.StatusCritical: lipgloss.Color("196"),
	engine.StatusUnknown:  lipgloss.Color("244"),
}

// Verdict returns the bold style for a verdict status.
func Verdict(status string) lipgloss.Style {
	c, ok := verdictColors[status]
	if !ok {
		c = verdictColors[engine.StatusHealthy]
	}
	return verdictStyle.Foreground(c)
}
