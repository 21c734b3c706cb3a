package sprite

import "pokesprite/internal/imaging"

// LoadedFunc is called after a sprite was fetched from the network and
// decoded. Cache hits do not trigger it.
type LoadedFunc func(reference string, sprite *imaging.Sprite)

// OnLoaded registers fn and returns a func that unregisters it. Listeners
// run synchronously on the resolving goroutine and must not block.
func (c *Cache) OnLoaded(fn LoadedFunc) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Cache) notify(reference string, s *imaging.Sprite) {
	c.listenersMu.RLock()
	fns := make([]LoadedFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(reference, s)
	}
}
