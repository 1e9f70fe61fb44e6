package registry

import (
	"sync"
	"sync/atomic"
)

// Hubber is the connection registry: the single source of truth for who is
// online on this node.
type Hubber interface {
	// Register inserts or silently overwrites the entry for the connector's
	// username, returning the superseded handle when one existed. The previous
	// transport is not evicted here; the caller decides what to do with it.
	Register(conn Connector) (prev Connector, replaced bool)
	// Unregister removes the entry if present, no-op otherwise.
	Unregister(username string)
	Lookup(username string) (Connector, bool)
	// Snapshot returns a point-in-time copy of the registered usernames, safe to
	// iterate while connections churn.
	Snapshot() []string
	Size() int
	Shutdown()
}

// Hub maps username -> Connector. Lookups are lock-free via sync.Map so that
// concurrent connection handlers never serialize on a global mutex.
type Hub struct {
	conns sync.Map
	size  atomic.Int64
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Register(conn Connector) (Connector, bool) {
	prev, replaced := h.conns.Swap(conn.GetUsername(), conn)
	if !replaced {
		h.size.Add(1)
		return nil, false
	}
	return prev.(Connector), true
}

func (h *Hub) Unregister(username string) {
	if _, loaded := h.conns.LoadAndDelete(username); loaded {
		h.size.Add(-1)
	}
}

func (h *Hub) Lookup(username string) (Connector, bool) {
	val, ok := h.conns.Load(username)
	if !ok {
		return nil, false
	}
	return val.(Connector), true
}

func (h *Hub) Snapshot() []string {
	usernames := make([]string, 0, h.Size())
	h.conns.Range(func(key, _ any) bool {
		usernames = append(usernames, key.(string))
		return true
	})
	return usernames
}

func (h *Hub) Size() int {
	return int(h.size.Load())
}

// Shutdown closes every registered connector and empties the registry.
func (h *Hub) Shutdown() {
	h.conns.Range(func(key, val any) bool {
		val.(Connector).Close()
		h.Unregister(key.(string))
		return true
	})
}
