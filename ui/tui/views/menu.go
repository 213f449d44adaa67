package views

import (
	"fmt"
	"math"
	"strings"

	"vtlookup/internal/engine"
	"vtlookup/ui/tui/state"
	"vtlookup/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// MenuOptions lists the pages reachable from the menu, in cursor order.
var MenuOptions = []string{
	"Console Output View",
	"Verdict Dashboard",
	"Detection Trend",
	"Indicator Table",
}

// Row of the first menu item; each item is three rows tall.
const menuTop = 6

var (
	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(styles.Brand).
			Padding(1, 2)

	menuBoxStyle = lipgloss.NewStyle().Padding(1, 0).MarginTop(1)

	blurbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)

	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666"))
)

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	items := make([]string, len(MenuOptions))
	for i, option := range MenuOptions {
		items[i] = zone.Mark(fmt.Sprintf("menu_%d", i), menuItem(i, option, props))
	}

	menu := menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(styles.Brand).Render("WATCHLIST"),
		blurbStyle.Render("Select a view of the watched indicators."),
		lipgloss.JoinVertical(lipgloss.Left, items...),
	))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		MenuHeaderStyle.Width(props.Width).Render("VTLOOKUP // INDICATOR INTELLIGENCE"),
		menu,
		lipgloss.NewStyle().PaddingLeft(2).Render(menuFooter(s)),
	))
}

// menuItem renders option i, pushed right while the animated cursor is near
// it and lit when the mouse hovers close by.
func menuItem(i int, option string, props ViewProps) string {
	strength := math.Max(0, 1-math.Abs(float64(i)-props.AnimCursor))
	hover := math.Abs(float64(props.MouseY - (menuTop + i*3 + 1)))

	border := styles.Base
	if hover < 5 {
		border = lipgloss.Color("#aaa")
	}
	if strength > 0.1 || i == props.MenuCursor {
		border = styles.Brand
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MarginLeft(2 + int(strength*2)).
		Width(40).
		Foreground(lipgloss.Color("#AAA"))
	if i == props.MenuCursor {
		style = style.Bold(true).Foreground(lipgloss.Color("#FFF"))
	}
	return style.Render(fmt.Sprintf("%02d. %s", i+1, option))
}

func menuFooter(s state.AppState) string {
	counts := engine.Summary(s.Results)
	verdicts := make([]string, 0, 3)
	for _, st := range []string{engine.StatusCritical, engine.StatusWarning, engine.StatusHealthy} {
		verdicts = append(verdicts, styles.Verdict(st).Render(fmt.Sprintf("%d %s", counts[st], st)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		footerStyle.Render(fmt.Sprintf("%d indicators • %d passes", len(s.Results), s.Passes)),
		strings.Join(verdicts, "  "),
		footerStyle.Foreground(lipgloss.Color("#444")).Render("Data: VirusTotal API v3"),
		footerStyle.Foreground(lipgloss.Color("#333")).Render("\n[↑/↓] Navigate • [Enter] Select • [Q] Quit"),
	)
}
