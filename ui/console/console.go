package console

import (
	"fmt"
	"io"
	"strings"

	"vtlookup/internal/engine"
	"vtlookup/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

const labelWidth = 40

// Print renders the verdict report to the writer in a compact format.
func Print(w io.Writer, view output.ReportView) {
	fmt.Fprintf(w, "%s%s %s%s\n", colorCyan, "■", "VTLOOKUP REPORT", colorReset)

	for _, sec := range view.Sections {
		fmt.Fprintf(w, "%s%s%s\n", colorCyan, "─ "+sec.Title, colorReset)

		for _, it := range sec.Items {
			label := it.Label
			if len(label) > labelWidth {
				label = label[:labelWidth-3] + "..."
			}

			valStr := it.Note
			if it.Unit != "" {
				valStr = fmt.Sprintf("%s (%.1f%s)", it.Note, it.Value, it.Unit)
			}

			dots := strings.Repeat("·", labelWidth+2-len(label))
			fmt.Fprintf(w, "  %s%s %18s %s\n", label, colorCyan+dots+colorReset, valStr, marker(it.Status))
		}
	}

	fmt.Fprintf(w, "%s─ Summary%s: %d indicators | %s%d CRIT%s | %s%d WARN%s | %s%d OK%s | %d N/A\n\n",
		colorCyan, colorReset, view.Total,
		colorRed, view.Counts[engine.StatusCritical], colorReset,
		colorYellow, view.Counts[engine.StatusWarning], colorReset,
		colorGreen, view.Counts[engine.StatusHealthy], colorReset,
		view.Counts[engine.StatusUnknown])
}

func marker(status string) string {
	color := colorFor(status)
	switch status {
	case engine.StatusCritical:
		return color + "X" + colorReset
	case engine.StatusWarning:
		return color + "!" + colorReset
	case engine.StatusHealthy:
		return color + "✓" + colorReset
	default:
		return color + "?" + colorReset
	}
}

func colorFor(status string) string {
	switch status {
	case engine.StatusWarning:
		return colorYellow
	case engine.StatusCritical:
		return colorRed
	case engine.StatusUnknown:
		return colorGray
	default:
		return colorGreen
	}
}
