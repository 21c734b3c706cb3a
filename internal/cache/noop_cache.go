package cache

import "pokesprite/internal/imaging"

// NoopCache disables the memory tier; every lookup goes to disk.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Get(reference string) (*imaging.Sprite, bool) {
	return nil, false
}

func (c *NoopCache) Set(reference string, sprite *imaging.Sprite) {
}

func (c *NoopCache) Has(reference string) bool {
	return false
}

func (c *NoopCache) Len() int {
	return 0
}

func (c *NoopCache) Clear() {
}
