package state

import (
	"time"

	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
)

type Page int

const (
	PageMenu    Page = iota
	PageConsole      // "Console Output View"
	PageDashboard
	PageTrend // "Detection Trend"
	PageTable // "Indicator Table"
)

// AppState holds the latest watchlist pass.
type AppState struct {
	Records      *frame.Table
	Results      []engine.CheckResult
	LastUpdate   time.Time
	Err          error
	Passes       int
	RatioHistory []float64 // highest detection ratio (%) per pass
	ConsoleLogs  []string
	CurrentPage  Page
}
