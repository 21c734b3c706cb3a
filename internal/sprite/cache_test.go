package sprite_test

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pokesprite/internal/cache"
	"pokesprite/internal/imaging"
	"pokesprite/internal/sprite"
)

const pikachu = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/25.png"

func TestResolve_InvalidReferenceDoesNoIO(t *testing.T) {
	refs := []string{
		"",
		"not a url",
		"pikachu.png",
		"/sprites/25.png",
		"ftp://example.com/25.png",
		"https://",
		" https://example.com/25.png",
		"https://example.com/%zz",
	}

	for _, ref := range refs {
		t.Run(ref, func(t *testing.T) {
			h := newHarness(t)

			s, ok := h.cache.Resolve(context.Background(), ref)

			assert.False(t, ok)
			assert.Nil(t, s)
			h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
			assert.Zero(t, h.disk.calls())
			_, err := os.Stat(h.dir)
			assert.True(t, os.IsNotExist(err), "cache directory must not be created")
			assert.Zero(t, h.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		})
	}
}

func TestResolve_FetchThenPersist(t *testing.T) {
	h := newHarness(t)
	payload := pngBytes(t, 96, 96, color.White)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(payload, nil).Once()

	s, ok := h.cache.Resolve(context.Background(), pikachu)

	require.True(t, ok)
	assert.Equal(t, 96, s.Width)
	assert.Equal(t, 96, s.Height)
	assert.Equal(t, payload, s.Data)

	onDisk, err := os.ReadFile(h.path(pikachu))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk, "disk file must hold the fetched bytes verbatim")
	assert.True(t, h.memory.Has(pikachu))
	h.fetcher.AssertExpectations(t)
}

func TestResolve_MemoryHitShortCircuits(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(pngBytes(t, 8, 8, color.Black), nil).Once()

	first, ok := h.cache.Resolve(context.Background(), pikachu)
	require.True(t, ok)

	h.disk.failAll.Store(true)
	diskCalls := h.disk.calls()

	second, ok := h.cache.Resolve(context.Background(), pikachu)

	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, diskCalls, h.disk.calls(), "memory hit must not touch disk")
	h.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestResolve_DiskHitAvoidsNetwork(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	settings := filepath.Join(t.TempDir(), "settings.yaml")
	payload := pngBytes(t, 40, 30, color.White)

	// Populate disk through one process, then resolve from a fresh one.
	warm := newHarnessAt(t, dir, settings)
	warm.fetcher.On("Fetch", mock.Anything, pikachu).Return(payload, nil).Once()
	_, ok := warm.cache.Resolve(context.Background(), pikachu)
	require.True(t, ok)

	cold := newHarnessAt(t, dir, settings)
	s, ok := cold.cache.Resolve(context.Background(), pikachu)

	require.True(t, ok)
	assert.Equal(t, 40, s.Width)
	assert.Equal(t, 30, s.Height)
	cold.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.True(t, cold.memory.Has(pikachu), "disk hit populates memory")
}

func TestResolve_PrepopulatedDiskFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.dir, 0755))
	require.NoError(t, os.WriteFile(h.path(pikachu), pngBytes(t, 12, 12, color.White), 0644))

	s, ok := h.cache.Resolve(context.Background(), pikachu)

	require.True(t, ok)
	assert.Equal(t, 12, s.Width)
	h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestResolve_NetworkFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(nil, errors.New("connection refused")).Once()

	s, ok := h.cache.Resolve(context.Background(), pikachu)

	assert.False(t, ok)
	assert.Nil(t, s)
	_, err := os.Stat(h.path(pikachu))
	assert.True(t, os.IsNotExist(err), "no file may be created on fetch failure")
	assert.False(t, h.memory.Has(pikachu))

	errs := h.logs.FilterMessage("Failed to fetch sprite")
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, zapcore.ErrorLevel, errs.All()[0].Level)
}

func TestResolve_NetworkFailureLeavesExistingFileUntouched(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.dir, 0755))
	garbage := []byte("garbage")
	require.NoError(t, os.WriteFile(h.path(pikachu), garbage, 0644))
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(nil, errors.New("timeout")).Once()

	_, ok := h.cache.Resolve(context.Background(), pikachu)

	assert.False(t, ok)
	onDisk, err := os.ReadFile(h.path(pikachu))
	require.NoError(t, err)
	assert.Equal(t, garbage, onDisk)
}

func TestResolve_CorruptDiskFileRecoversViaNetwork(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.dir, 0755))
	require.NoError(t, os.WriteFile(h.path(pikachu), []byte("\x00\x01corrupt"), 0644))
	valid := pngBytes(t, 96, 96, color.White)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(valid, nil).Once()

	s, ok := h.cache.Resolve(context.Background(), pikachu)

	require.True(t, ok)
	assert.Equal(t, 96, s.Width)
	onDisk, err := os.ReadFile(h.path(pikachu))
	require.NoError(t, err)
	assert.Equal(t, valid, onDisk, "corrupt file must be overwritten")

	warns := h.logs.FilterMessage("Cached sprite is corrupt, refetching")
	require.Equal(t, 1, warns.Len())
	assert.Equal(t, zapcore.WarnLevel, warns.All()[0].Level)
}

func TestResolve_UndecodableFetchStillPersists(t *testing.T) {
	h := newHarness(t)
	junk := []byte("<html>not found</html>")
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(junk, nil).Once()

	s, ok := h.cache.Resolve(context.Background(), pikachu)

	assert.False(t, ok)
	assert.Nil(t, s)
	onDisk, err := os.ReadFile(h.path(pikachu))
	require.NoError(t, err)
	assert.Equal(t, junk, onDisk)
	assert.False(t, h.memory.Has(pikachu))
}

func TestResolve_DiskWriteFailureStillServesFromMemory(t *testing.T) {
	h := newHarness(t)
	h.disk.failSets.Store(true)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(pngBytes(t, 8, 8, color.White), nil).Once()

	_, ok := h.cache.Resolve(context.Background(), pikachu)
	require.True(t, ok)

	_, ok = h.cache.Resolve(context.Background(), pikachu)
	require.True(t, ok)

	h.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	_, err := os.Stat(h.path(pikachu))
	assert.True(t, os.IsNotExist(err))

	errs := h.logs.FilterMessage("Failed to persist sprite")
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, zapcore.ErrorLevel, errs.All()[0].Level)
}

func TestResolve_DiskReadFailureFallsBackToNetwork(t *testing.T) {
	h := newHarness(t)
	h.disk.failAll.Store(true)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(pngBytes(t, 8, 8, color.White), nil).Once()

	_, ok := h.cache.Resolve(context.Background(), pikachu)

	assert.True(t, ok)
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to read cached sprite").Len())
}

func TestResolve_ConcurrentSameReference(t *testing.T) {
	h := newHarness(t)
	payload := pngBytes(t, 64, 64, color.White)
	h.fetcher.On("Fetch", mock.Anything, pikachu).Return(payload, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, ok := h.cache.Resolve(context.Background(), pikachu)
			assert.True(t, ok)
			assert.Equal(t, 64, s.Width)
		}()
	}
	wg.Wait()

	onDisk, err := os.ReadFile(h.path(pikachu))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)

	leftovers, err := filepath.Glob(filepath.Join(h.dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
	assert.Equal(t, 1, h.memory.Len())
}

func TestResolve_ConcurrentDistinctReferences(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(pngBytes(t, 8, 8, color.White), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := h.cache.Resolve(context.Background(), fmt.Sprintf("https://example.com/%d.png", i))
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, h.memory.Len())
	entries, err := h.cache.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestClear_IsTotalAndBestEffort(t *testing.T) {
	h := newHarness(t)
	refs := []string{
		"https://example.com/1.png",
		"https://example.com/2.png",
		"https://example.com/3.png",
	}
	h.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(pngBytes(t, 8, 8, color.White), nil)
	for _, ref := range refs {
		_, ok := h.cache.Resolve(context.Background(), ref)
		require.True(t, ok)
	}

	stuck := filepath.Join(h.dir, "stuck.png")
	require.NoError(t, os.MkdirAll(stuck, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stuck, "child"), []byte("x"), 0644))

	removed := h.cache.Clear()

	assert.Equal(t, 3, removed)
	assert.Zero(t, h.cache.MemoryLen())
	for _, ref := range refs {
		_, err := os.Stat(h.path(ref))
		assert.True(t, os.IsNotExist(err))
	}
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to delete cached sprite").Len())

	_, ok := h.cache.Resolve(context.Background(), refs[0])
	require.True(t, ok)
	h.fetcher.AssertNumberOfCalls(t, "Fetch", len(refs)+1)
}

func TestSpriteSize(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("sprites:\n  size: 128\n"), 0644))
	h := newHarnessAt(t, t.TempDir(), settings)

	assert.Equal(t, 128, h.cache.SpriteSize())

	require.NoError(t, os.WriteFile(settings, []byte("sprites:\n  size: 64\n"), 0644))
	assert.Equal(t, 64, h.cache.SpriteSize(), "value is re-read on every call")
}

func TestSpriteSize_FallsBackToDefault(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 96, h.cache.SpriteSize())
	warns := h.logs.FilterMessage("Failed to read sprite size, using default")
	require.Equal(t, 1, warns.Len())
	assert.Equal(t, zapcore.WarnLevel, warns.All()[0].Level)
}

func TestNew_Validation(t *testing.T) {
	disk := cache.NewFileCache(t.TempDir())
	memory := cache.NewMemoryCache(0)

	_, err := sprite.New(sprite.Options{Memory: memory, Disk: disk}, zap.NewNop())
	assert.Error(t, err)

	_, err = sprite.New(sprite.Options{
		Memory:   memory,
		Disk:     disk,
		Fetcher:  new(fetcherMock),
		Decoder:  imaging.StdDecoder{},
		HashAlgo: "crc32",
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestKey_StableAcrossInstances(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)

	assert.Equal(t, a.cache.Key(pikachu), b.cache.Key(pikachu))
	assert.NotEqual(t, a.cache.Key(pikachu), a.cache.Key(pikachu+"?shiny"))
}

func TestValidReference(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{pikachu, true},
		{"http://localhost:8080/sprites/1.png", true},
		{"", false},
		{"   ", false},
		{"https://", false},
		{"mailto:ash@example.com", false},
		{"file:///etc/passwd", false},
		{"//example.com/1.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, sprite.ValidReference(tt.ref))
		})
	}
}
