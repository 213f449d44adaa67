// Package engine grades looked-up indicators against detection thresholds.
package engine

import (
	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"
	// StatusUnknown marks records without analysis stats, such as batch stubs.
	StatusUnknown = "N/A"
)

// Thresholds defines warning and critical levels for a measure.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Config holds the thresholds a verdict is graded against. A record takes
// the worse of its two statuses.
type Config struct {
	Detections Thresholds
	Ratio      Thresholds // detections / scans
}

func DefaultConfig() Config {
	return Config{
		Detections: Thresholds{Warning: 0, Critical: 4},
		Ratio:      Thresholds{Warning: 0.05, Critical: 0.2},
	}
}

type CheckResult struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Detections int     `json:"detections"`
	Scans      int     `json:"scans"`
	Ratio      float64 `json:"ratio"`
	Status     string  `json:"status"`
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

var severity = map[string]int{
	StatusUnknown:  0,
	StatusHealthy:  1,
	StatusWarning:  2,
	StatusCritical: 3,
}

func worst(a, b string) string {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Evaluate grades every record of a lookup table in row order.
func Evaluate(t *frame.Table, cfg Config) []CheckResult {
	if t == nil {
		return nil
	}
	results := make([]CheckResult, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := CheckResult{
			ID:     t.GetString(i, vt.ColumnID),
			Kind:   t.GetString(i, vt.ColumnType),
			Status: StatusUnknown,
		}

		detections, okD := toInt(t.Get(i, vt.ColumnDetections))
		scans, okS := toInt(t.Get(i, vt.ColumnScans))
		if !okD || !okS {
			results = append(results, r)
			continue
		}
		r.Detections = detections
		r.Scans = scans
		if scans > 0 {
			r.Ratio = float64(detections) / float64(scans)
		}

		r.Status = worst(
			getStatus(float64(detections), cfg.Detections.Warning, cfg.Detections.Critical),
			getStatus(r.Ratio, cfg.Ratio.Warning, cfg.Ratio.Critical),
		)
		results = append(results, r)
	}
	return results
}

// Summary counts results per status.
func Summary(results []CheckResult) map[string]int {
	out := map[string]int{}
	for _, r := range results {
		out[r.Status]++
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
