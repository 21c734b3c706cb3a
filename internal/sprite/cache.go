package sprite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pokesprite/internal/cache"
	"pokesprite/internal/config"
	"pokesprite/internal/hashutil"
	"pokesprite/internal/imaging"
)

// Fetcher retrieves the raw bytes behind a sprite reference.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type Options struct {
	Memory       cache.MemoryTier
	Disk         cache.DiskTier
	Fetcher      Fetcher
	Decoder      imaging.Decoder
	HashAlgo     hashutil.HashAlgo
	SettingsPath string
}

// Cache resolves sprite references through memory, then disk, then network.
// Every failure is logged and reported as "no sprite"; nothing here is fatal
// to the caller.
type Cache struct {
	memory       cache.MemoryTier
	disk         cache.DiskTier
	fetcher      Fetcher
	decoder      imaging.Decoder
	hashAlgo     hashutil.HashAlgo
	settingsPath string
	logger       *zap.Logger

	listenersMu sync.RWMutex
	listeners   map[uint64]LoadedFunc
	nextID      uint64
}

func New(opts Options, logger *zap.Logger) (*Cache, error) {
	if opts.Memory == nil || opts.Disk == nil || opts.Fetcher == nil || opts.Decoder == nil {
		return nil, errors.New("sprite cache needs memory, disk, fetcher and decoder")
	}
	algo := opts.HashAlgo
	if algo == "" {
		algo = hashutil.HashAlgoBLAKE3
	}
	if _, err := hashutil.HashBytes(nil, algo); err != nil {
		return nil, fmt.Errorf("invalid cache key hash: %w", err)
	}

	return &Cache{
		memory:       opts.Memory,
		disk:         opts.Disk,
		fetcher:      opts.Fetcher,
		decoder:      opts.Decoder,
		hashAlgo:     algo,
		settingsPath: opts.SettingsPath,
		logger:       logger,
		listeners:    make(map[uint64]LoadedFunc),
	}, nil
}

// Key returns the cache key (and disk file stem) for reference.
func (c *Cache) Key(reference string) string {
	key, _ := hashutil.KeyFor(reference, c.hashAlgo)
	return key
}

// Resolve returns the decoded sprite for reference, or false when none is
// available. The returned sprite is shared and must not be modified.
func (c *Cache) Resolve(ctx context.Context, reference string) (*imaging.Sprite, bool) {
	if !ValidReference(reference) {
		return nil, false
	}

	if s, ok := c.memory.Get(reference); ok {
		return s, true
	}

	log := c.logger.With(zap.String("reference", reference))
	key := c.Key(reference)

	if err := c.disk.EnsureDir(); err != nil {
		log.Error("Failed to create cache directory", zap.Error(err))
	}

	if s, ok := c.fromDisk(key, log); ok {
		c.memory.Set(reference, s)
		return s, true
	}

	data, err := c.fetcher.Fetch(ctx, reference)
	if err != nil {
		log.Error("Failed to fetch sprite", zap.Error(err))
		return nil, false
	}

	// The bytes are persisted as received, even if they turn out not to decode.
	if err := c.disk.Set(key, data); err != nil {
		log.Error("Failed to persist sprite", zap.String("key", key), zap.Error(err))
	}

	s, err := c.decoder.Decode(data)
	if err != nil {
		log.Error("Fetched sprite could not be decoded", zap.Int("bytes", len(data)), zap.Error(err))
		return nil, false
	}

	c.memory.Set(reference, s)
	c.notify(reference, s)
	return s, true
}

func (c *Cache) fromDisk(key string, log *zap.Logger) (*imaging.Sprite, bool) {
	data, err := c.disk.Get(key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.Warn("Failed to read cached sprite", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	s, err := c.decoder.Decode(data)
	if err != nil {
		log.Warn("Cached sprite is corrupt, refetching", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return s, true
}

// Clear empties the memory tier and deletes every file in the disk tier.
// Files that cannot be deleted are logged and skipped. It returns the number
// of files removed.
func (c *Cache) Clear() int {
	c.memory.Clear()

	removed, err := c.disk.Clear()
	for _, e := range multierr.Errors(err) {
		c.logger.Error("Failed to delete cached sprite", zap.Error(e))
	}

	c.logger.Info("Sprite cache cleared", zap.Int("removed", removed))
	return removed
}

// SpriteSize returns sprites.size from the settings file, or the default of
// 96 when the file is missing or malformed. The file is read on every call.
func (c *Cache) SpriteSize() int {
	size, err := config.SpriteSize(c.settingsPath)
	if err != nil {
		c.logger.Warn("Failed to read sprite size, using default",
			zap.String("settings", c.settingsPath),
			zap.Int("size", size),
			zap.Error(err),
		)
	}
	return size
}

// MemoryLen reports how many decoded sprites are held in memory.
func (c *Cache) MemoryLen() int {
	return c.memory.Len()
}

// Entries lists the sprites persisted on disk.
func (c *Cache) Entries() ([]cache.Entry, error) {
	return c.disk.List()
}
