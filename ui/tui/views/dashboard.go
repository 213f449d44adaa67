package views

import (
	"fmt"
	"vtlookup/internal/engine"
	"vtlookup/internal/output"
	"vtlookup/ui/tui/state"
	"vtlookup/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type DashboardView struct{}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	if s.Err != nil {
		return fmt.Sprintf("Error: %v", s.Err)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("vtlookup watchlist"),
		fmt.Sprintf(" Last Update: %s", s.LastUpdate.Format("15:04:05")),
	)

	report := output.BuildReport(s.Results)

	renderSection := func(sec output.Section) string {
		content := ""
		for _, item := range sec.Items {
			label := item.Label
			if len(label) > 28 {
				label = label[:25] + "..."
			}
			valStr := item.Note
			if item.Unit != "" {
				valStr = fmt.Sprintf("%s %.1f%s", item.Note, item.Value, item.Unit)
			}
			valStr = styles.Verdict(item.Status).Render(fmt.Sprintf("%s [%s]", valStr, item.Status))
			content += fmt.Sprintf("%-28s : %s\n", label, valStr)
		}
		return content
	}

	var cards []string
	for _, sec := range report.Sections {
		cards = append(cards, zone.Mark("section_"+sec.ID, styles.CardStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).Render(sec.Title),
				renderSection(sec),
			),
		)))
	}
	if len(cards) == 0 {
		cards = append(cards, styles.CardStyle.Render("Waiting for the first watchlist pass..."))
	}

	var rows []string
	for i := 0; i < len(cards); i += 2 {
		end := min(i+2, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	summary := fmt.Sprintf("%s  %s  %s  %s",
		styles.Verdict(engine.StatusCritical).Render(fmt.Sprintf("%d CRIT", report.Counts[engine.StatusCritical])),
		styles.Verdict(engine.StatusWarning).Render(fmt.Sprintf("%d WARN", report.Counts[engine.StatusWarning])),
		styles.Verdict(engine.StatusHealthy).Render(fmt.Sprintf("%d OK", report.Counts[engine.StatusHealthy])),
		styles.Verdict(engine.StatusUnknown).Render(fmt.Sprintf("%d N/A", report.Counts[engine.StatusUnknown])),
	)

	parts := append([]string{header, summary}, rows...)
	parts = append(parts, styles.HintStyle.Render("\nPress 'b' to go back • 'q' to quit"))
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
