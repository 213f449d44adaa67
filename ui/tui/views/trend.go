package views

import (
	"fmt"
	"strings"
	"vtlookup/ui/tui/state"
	"vtlookup/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type TrendView struct{}

func (v TrendView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Detection Trend")

	latest := 0.0
	if n := len(s.RatioHistory); n > 0 {
		latest = s.RatioHistory[n-1]
	}
	info := lipgloss.NewStyle().
		Padding(1, 2).
		Render(fmt.Sprintf("Passes: %d\nIndicators: %d\nHighest detection ratio: %.1f%%",
			s.Passes, len(s.Results), latest))

	chart := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Highest Ratio per Pass"),
			props.ChartView,
		))

	var bars []string
	for _, r := range s.Results {
		barWidth := 20
		pct := r.Ratio * 100
		filled := min(int(float64(barWidth)*pct/100), barWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		label := r.ID
		if len(label) > 20 {
			label = label[:17] + "..."
		}
		bars = append(bars, fmt.Sprintf("%-20s [%s] %5.1f%%", label, styles.Verdict(r.Status).Render(bar), pct))
	}

	// Split bars into columns if there are many
	const barsPerCol = 8
	var cols []string
	for i := 0; i < len(bars); i += barsPerCol {
		end := min(i+barsPerCol, len(bars))
		col := lipgloss.JoinVertical(lipgloss.Left, bars[i:end]...)
		if i > 0 {
			col = lipgloss.NewStyle().PaddingLeft(4).Render(col)
		}
		cols = append(cols, col)
	}

	barBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Detection Ratio per Indicator"),
			lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		))

	content := lipgloss.JoinHorizontal(lipgloss.Top, chart, barBox)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		info,
		content,
		styles.HintStyle.Padding(1, 2).Render("Press 'b' to go back"),
	)
}
