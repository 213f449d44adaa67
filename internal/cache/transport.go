package cache

import (
	"context"
	"log/slog"

	"vtlookup/internal/metrics"
	"vtlookup/internal/vt"
)

// Store is the object store used by Transport.
type Store interface {
	Get(ctx context.Context, path string) (*vt.Object, bool, error)
	Set(ctx context.Context, path string, obj *vt.Object) error
}

// Transport serves GetObject from a Store and fills it on miss. Collection
// paging always goes to the wrapped transport. Store errors are logged and
// treated as misses.
type Transport struct {
	next   vt.Transport
	store  Store
	logger *slog.Logger
}

var _ vt.Transport = (*Transport)(nil)

// NewTransport wraps next with store.
func NewTransport(next vt.Transport, store Store, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{next: next, store: store, logger: logger}
}

// GetObject implements vt.Transport.
func (t *Transport) GetObject(ctx context.Context, path string) (*vt.Object, error) {
	obj, ok, err := t.store.Get(ctx, path)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		t.logger.Warn("cache read failed", "path", path, "err", err)
	case ok:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return obj, nil
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	obj, err = t.next.GetObject(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := t.store.Set(ctx, path, obj); err != nil {
		t.logger.Warn("cache write failed", "path", path, "err", err)
	}
	return obj, nil
}

// Iterate implements vt.Transport.
func (t *Transport) Iterate(ctx context.Context, path string, pageSize, limit int) ([]*vt.Object, error) {
	return t.next.Iterate(ctx, path, pageSize, limit)
}

// Close implements vt.Transport. It does not close the store.
func (t *Transport) Close() error {
	return t.next.Close()
}
