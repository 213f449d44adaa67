package vt

import (
	"context"
	"fmt"

	"vtlookup/internal/frame"
	"vtlookup/internal/metrics"
)

// LookupMany looks up every row of indicators, reading the value and kind
// from the named columns. A row that fails is logged and replaced by a stub
// record holding only id and type; the batch never aborts on a single row.
func (c *Client) LookupMany(ctx context.Context, indicators *frame.Table, valueColumn, kindColumn string) (*frame.Table, error) {
	return c.batch(ctx, indicators, valueColumn, kindColumn, func(value, kind string) (*frame.Table, error) {
		return c.LookupOne(ctx, value, kind)
	})
}

// LookupManyRelationships runs LookupRelationships for every row of
// indicators with the same relationship and options. Failed rows become
// stub records keyed by id, not by (source, target).
func (c *Client) LookupManyRelationships(ctx context.Context, indicators *frame.Table, relationship, valueColumn, kindColumn string, opts ...RelationshipOption) (*frame.Table, error) {
	return c.batch(ctx, indicators, valueColumn, kindColumn, func(value, kind string) (*frame.Table, error) {
		return c.LookupRelationships(ctx, value, kind, relationship, opts...)
	})
}

func (c *Client) batch(ctx context.Context, indicators *frame.Table, valueColumn, kindColumn string, lookup func(value, kind string) (*frame.Table, error)) (*frame.Table, error) {
	if valueColumn == "" {
		valueColumn = DefaultValueColumn
	}
	if kindColumn == "" {
		kindColumn = DefaultKindColumn
	}
	for _, col := range []string{valueColumn, kindColumn} {
		if !indicators.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	results := make([]*frame.Table, 0, indicators.Len())
	for i := 0; i < indicators.Len(); i++ {
		value := indicators.GetString(i, valueColumn)
		kind := indicators.GetString(i, kindColumn)

		t, err := lookup(value, kind)
		if err != nil {
			c.logger.Error("could not obtain results, emitting stub row",
				"kind", kind, "value", value, "err", err)
			metrics.Lookups.WithLabelValues("batch", kindLabel(kind), metrics.OutcomeStubbed).Inc()
			t = stub(value, kind)
		}
		results = append(results, t)
	}
	return frame.Concat(results...), nil
}

// kindLabel bounds the kind label to the supported kinds, since batch kinds
// come straight from caller input.
func kindLabel(kind string) string {
	k, err := ParseKind(kind)
	if err != nil {
		return metrics.KindUnsupported
	}
	return k.String()
}

func stub(value, kind string) *frame.Table {
	t := frame.New(ColumnID)
	t.AppendOrdered(frame.Row{ColumnID: value, ColumnType: kind}, ColumnID, ColumnType)
	return t
}
