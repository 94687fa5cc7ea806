package editorcore

import "sync"

// NodeTypeDescriptor is the registration record for a DecoratorNode
// subtype; element types are not registered here (design notes §9: "a richer set of node types
// ... variants registered in a registered-nodes table"). Parse uses
// the registry to decide whether an unfamiliar Type tag in a document
// is a legitimate decorator or a genuine error.
type NodeTypeDescriptor struct {
	Type     string
	IsInline bool
	// New constructs a zero-value DecoratorNode of this type; Payload
	// is filled in by the caller (deserialization or a command
	// handler) afterward.
	New func() *DecoratorNode
}

var (
	registryMu sync.RWMutex
	registry   = map[string]NodeTypeDescriptor{}
)

// RegisterNodeType adds a decorator type to the registry. Re-registering
// an existing Type overwrites its descriptor.
func RegisterNodeType(d NodeTypeDescriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Type] = d
}

// LookupNodeType returns the descriptor for typ, if registered.
func LookupNodeType(typ string) (NodeTypeDescriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[typ]
	return d, ok
}

// Equaler lets a decorator's payload decide its own equality instead
// of falling back to Go's ==, so the reconciler's decorator-cache
// invalidation (below) can compare payloads that == cannot: a
// non-comparable payload without Equal always counts as changed.
type Equaler[T any] interface {
	Equal(other T) bool
}

// DecoratorCache holds host-rendered views for decorator nodes, keyed
// by NodeKey, so the reconciler only asks the Host to render a
// decorator when its payload actually changed (spec §4.5: the
// reconciler "skip[s] host notification for untouched decorators").
type DecoratorCache struct {
	mu      sync.Mutex
	entries map[NodeKey]decoratorCacheEntry
}

type decoratorCacheEntry struct {
	payload any
}

// NewDecoratorCache returns an empty cache.
func NewDecoratorCache() *DecoratorCache {
	return &DecoratorCache{entries: make(map[NodeKey]decoratorCacheEntry)}
}

// NeedsRender reports whether key's decorator must be (re)rendered:
// true if the cache has no entry yet, or if payload differs from the
// cached one (via Equaler when the payload implements it, otherwise a
// simple != for comparable types and always-stale for everything
// else).
func (c *DecoratorCache) NeedsRender(key NodeKey, payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return true
	}
	return !payloadsEqual(entry.payload, payload)
}

// Record marks key's decorator as freshly rendered with payload.
func (c *DecoratorCache) Record(key NodeKey, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = decoratorCacheEntry{payload: payload}
}

// Forget drops key's cache entry (the node was removed from the tree).
func (c *DecoratorCache) Forget(key NodeKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func payloadsEqual(a, b any) (eq bool) {
	if cmp, ok := a.(interface{ Equal(any) bool }); ok {
		return cmp.Equal(b)
	}
	if a == nil || b == nil {
		return a == b
	}
	// Guard against payload types that aren't comparable (slices,
	// maps, funcs): treat them as always-stale rather than panicking.
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
