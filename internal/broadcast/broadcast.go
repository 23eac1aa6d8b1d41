// Package broadcast implements the live-update side of message delivery: a
// path-keyed value tree that clients subscribe to independently of the
// durable message store. Nothing here is authoritative; a lost publish only
// degrades clients to polling.
package broadcast

import "context"

// Event describes a single mutation under a subscribed prefix.
type Event struct {
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// CancelFunc detaches a subscription. Safe to call more than once.
type CancelFunc func()

// Store is the broadcast-store contract the delivery path writes through.
// Publish and Remove are last-write-wins; there is no atomic read-modify-write
// primitive, which the unread counters knowingly live with.
type Store interface {
	Publish(ctx context.Context, path string, value any) error
	Remove(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (any, bool)
	List(prefix string) map[string]any
	Subscribe(prefix string, fn func(Event)) CancelFunc
}
