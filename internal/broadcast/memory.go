package broadcast

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the in-process broadcast store. Values live in a flat map
// keyed by path; subscriptions match on path prefix and are invoked
// synchronously in publish order per subscriber.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any

	subMu  sync.RWMutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	prefix string
	fn     func(Event)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]any),
		subs:   make(map[int]*subscription),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Publish(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.values[path] = value
	m.mu.Unlock()

	m.dispatch(Event{Path: path, Value: value})
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	removed := make([]string, 0, 1)
	for p := range m.values {
		if p == path || strings.HasPrefix(p, path+"/") {
			removed = append(removed, p)
		}
	}
	for _, p := range removed {
		delete(m.values, p)
	}
	m.mu.Unlock()

	for _, p := range removed {
		m.dispatch(Event{Path: p, Removed: true})
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, path string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[path]
	return v, ok
}

// List returns every value stored at or under the prefix, keyed by full path.
func (m *MemoryStore) List(prefix string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any)
	for p, v := range m.values {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			out[p] = v
		}
	}
	return out
}

func (m *MemoryStore) Subscribe(prefix string, fn func(Event)) CancelFunc {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = &subscription{prefix: prefix, fn: fn}
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *MemoryStore) dispatch(ev Event) {
	m.subMu.RLock()
	matched := make([]func(Event), 0, 4)
	for _, sub := range m.subs {
		if sub.prefix == "" || ev.Path == sub.prefix || strings.HasPrefix(ev.Path, sub.prefix+"/") {
			matched = append(matched, sub.fn)
		}
	}
	m.subMu.RUnlock()

	for _, fn := range matched {
		fn(ev)
	}
}
