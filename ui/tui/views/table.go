package views

import (
	"vtlookup/ui/tui/state"
	"vtlookup/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// TableView frames the indicator table rendered by the controller.
type TableView struct{}

func (v TableView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Indicator Table")

	body := props.TableView
	if s.Records == nil || s.Records.Empty() {
		body = "No lookups yet."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		styles.CardStyle.Render(body),
		styles.HintStyle.PaddingLeft(2).Render("[↑/↓] Scroll • Press 'b' to go back"),
	)
}
