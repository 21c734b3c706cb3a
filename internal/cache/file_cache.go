package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	spriteExt = ".png"
	tmpExt    = ".tmp"
)

// FileCache is the disk tier.
// Structure: {cacheDir}/{key}.png
//
// Writes go to a uniquely named temp file that is renamed over the target,
// so concurrent writers of the same key leave one complete file behind.
type FileCache struct {
	cacheDir string
}

// NewFileCache does not touch the filesystem; the directory is created on
// first write or by EnsureDir.
func NewFileCache(cacheDir string) *FileCache {
	return &FileCache{
		cacheDir: cacheDir,
	}
}

func (c *FileCache) Dir() string {
	return c.cacheDir
}

func (c *FileCache) EnsureDir() error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Path returns the file that holds key.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.cacheDir, key+spriteExt)
}

func (c *FileCache) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(c.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (c *FileCache) Set(key string, value []byte) error {
	if err := c.EnsureDir(); err != nil {
		return err
	}

	filePath := c.Path(key)
	tmpPath := filepath.Join(c.cacheDir, uuid.NewString()+tmpExt)
	if err := os.WriteFile(tmpPath, value, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", filePath, err)
	}
	return nil
}

// Clear removes every cached sprite and any temp file left by an interrupted
// write. A file that cannot be removed does not stop the others; all such
// failures are returned combined.
func (c *FileCache) Clear() (int, error) {
	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	var errs error
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, spriteExt) && !strings.HasSuffix(name, tmpExt) {
			continue
		}

		path := filepath.Join(c.cacheDir, name)
		if err := os.Remove(path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		removed++
	}

	return removed, errs
}

func (c *FileCache) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), spriteExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Key:     strings.TrimSuffix(e.Name(), spriteExt),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}
