package vt

import (
	"context"
	"fmt"
	"math"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/metrics"
)

// LookupOne fetches a single indicator and returns a one-row table indexed by id.
func (c *Client) LookupOne(ctx context.Context, value, kind string) (*frame.Table, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	defer c.release()
	defer observe(opLookupOne, time.Now())

	obj, err := c.transport.GetObject(ctx, k.Path(value))
	if err == nil {
		var t *frame.Table
		if t, err = parseObject(obj); err == nil {
			metrics.Lookups.WithLabelValues(opLookupOne, k.String(), metrics.OutcomeOK).Inc()
			return t, nil
		}
	}

	metrics.Lookups.WithLabelValues(opLookupOne, k.String(), metrics.OutcomeFailed).Inc()
	return nil, &LookupError{Op: opLookupOne, Kind: kind, Value: value, Err: err}
}

// parseObject flattens obj into a single row: the kind's basic attributes,
// detections and scans, id and type. Objects without attributes (relationship
// descriptors) yield id and type only.
func parseObject(obj *Object) (*frame.Table, error) {
	row := frame.Row{}
	cols := []string{ColumnID}

	if obj.Attributes != nil {
		k, err := ParseKind(obj.Type)
		if err != nil {
			return nil, err
		}
		for _, p := range k.BasicProperties() {
			if v, ok := obj.Attributes[p]; ok {
				row[p] = normalize(v)
				cols = append(cols, p)
			}
		}

		detections, scans, err := verdictCounts(obj.Attributes["last_analysis_stats"])
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.ID, err)
		}
		row[ColumnDetections] = detections
		row[ColumnScans] = scans
		cols = append(cols, ColumnDetections, ColumnScans)
	}

	row[ColumnID] = obj.ID
	row[ColumnType] = obj.Type
	cols = append(cols, ColumnType)

	t := frame.New(ColumnID)
	t.AppendOrdered(row, cols...)
	return t, nil
}

// verdictCounts returns the malicious count and the total of all verdict counts.
func verdictCounts(v any) (detections, scans int, err error) {
	stats, ok := v.(map[string]any)
	if !ok {
		return 0, 0, fmt.Errorf("missing last_analysis_stats")
	}
	malicious, ok := stats["malicious"]
	if !ok {
		return 0, 0, fmt.Errorf("last_analysis_stats has no malicious count")
	}
	for name, count := range stats {
		n, ok := count.(float64)
		if !ok {
			return 0, 0, fmt.Errorf("last_analysis_stats.%s is not a number", name)
		}
		scans += int(n)
	}
	detections = int(malicious.(float64))
	return detections, scans, nil
}

// normalize turns integral JSON numbers into int64 so they print without exponents.
func normalize(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return v
	}
	return int64(f)
}
