package model

// Collection is a keyed set that iterates in insertion order. Landscapes use
// it for every hash-keyed collection so that scheduling runs are
// reproducible.
type Collection[T any] struct {
	keys  []string
	items map[string]T
}

// NewCollection returns an empty collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{items: make(map[string]T)}
}

// Put adds or replaces the item stored under key. Replacing keeps the
// original position.
func (c *Collection[T]) Put(key string, v T) {
	if c.items == nil {
		c.items = make(map[string]T)
	}
	if _, ok := c.items[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.items[key] = v
}

// Get returns the item stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Collection[T]) Has(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Delete removes key.
func (c *Collection[T]) Delete(key string) {
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of items.
func (c *Collection[T]) Len() int { return len(c.keys) }

// Keys returns the keys in insertion order.
func (c *Collection[T]) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Values returns the items in insertion order.
func (c *Collection[T]) Values() []T {
	out := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

// Each calls fn for every item in insertion order until fn returns false.
func (c *Collection[T]) Each(fn func(key string, v T) bool) {
	for _, k := range c.Keys() {
		if !fn(k, c.items[k]) {
			return
		}
	}
}
