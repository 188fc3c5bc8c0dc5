// Package unread surfaces the per-channel count of conversations with unread
// messages for badge display. Counts are always fetched fresh from the server:
// the in-memory conversation list is paginated and search-filtered and would
// undercount, so it is never used as a source.
package unread

import (
	"context"
	"sync"

	"support-console-backend/internal/transport"
)

type Counter struct {
	client transport.Client
	scope  transport.Scope

	mu        sync.Mutex
	lastKnown transport.UnreadCounts
}

// New builds a counter. For affiliate-scoped operators the scope narrows the
// query to their own managed subset; the zero scope is unscoped.
func New(client transport.Client, scope transport.Scope) *Counter {
	return &Counter{client: client, scope: scope}
}

// Counts asks the server for fresh per-channel totals. On failure the error is
// returned and the previously fetched counts stay available via LastKnown.
func (c *Counter) Counts(ctx context.Context) (transport.UnreadCounts, error) {
	counts, err := c.client.UnreadCounts(ctx, c.scope)
	if err != nil {
		return transport.UnreadCounts{}, err
	}

	c.mu.Lock()
	c.lastKnown = counts
	c.mu.Unlock()
	return counts, nil
}

// LastKnown returns the most recent successfully fetched counts. Badges render
// from this while a refresh is in flight or after a transient failure.
func (c *Counter) LastKnown() transport.UnreadCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKnown
}
