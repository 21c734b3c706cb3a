package cache

import (
	"errors"
	"time"

	"pokesprite/internal/imaging"
)

var ErrNotFound = errors.New("cache: not found")

// MemoryTier holds decoded sprites keyed by the original reference string.
// Implementations must be safe for concurrent use.
type MemoryTier interface {
	Get(reference string) (*imaging.Sprite, bool)
	Set(reference string, sprite *imaging.Sprite)
	Has(reference string) bool
	Len() int
	Clear()
}

// DiskTier holds raw sprite bytes keyed by cache key.
type DiskTier interface {
	EnsureDir() error
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Clear() (removed int, err error)
	List() ([]Entry, error)
}

// Entry describes one file in the disk tier.
type Entry struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
