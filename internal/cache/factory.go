package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// NewMemoryTier creates the memory tier for mode.
func NewMemoryTier(mode string, maxSprites int, log *zap.Logger) (MemoryTier, error) {
	switch mode {
	case "unbounded":
		log.Info("Using unbounded memory cache; cleared only by an explicit clear")
		return NewMemoryCache(0), nil
	case "lru":
		if maxSprites <= 0 {
			return nil, fmt.Errorf("lru memory cache needs a positive size, got %d", maxSprites)
		}
		log.Info("Using LRU memory cache", zap.Int("max_sprites", maxSprites))
		return NewMemoryCache(maxSprites), nil
	case "disabled":
		log.Info("Memory cache disabled")
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unknown memory cache: %s (supported: unbounded, lru, disabled)", mode)
	}
}
