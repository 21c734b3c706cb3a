package sprite_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pokesprite/internal/cache"
	"pokesprite/internal/hashutil"
	"pokesprite/internal/imaging"
	"pokesprite/internal/sprite"
)

var errDiskDown = errors.New("disk unavailable")

// fetcherMock is a testify mock standing in for the network.
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	args := f.Called(ctx, rawURL)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

// spyDisk counts disk tier calls and can be switched to fail them.
type spyDisk struct {
	cache.DiskTier
	gets     atomic.Int32
	sets     atomic.Int32
	ensures  atomic.Int32
	failAll  atomic.Bool
	failSets atomic.Bool
}

func (d *spyDisk) EnsureDir() error {
	d.ensures.Add(1)
	if d.failAll.Load() {
		return errDiskDown
	}
	return d.DiskTier.EnsureDir()
}

func (d *spyDisk) Get(key string) ([]byte, error) {
	d.gets.Add(1)
	if d.failAll.Load() {
		return nil, errDiskDown
	}
	return d.DiskTier.Get(key)
}

func (d *spyDisk) Set(key string, value []byte) error {
	d.sets.Add(1)
	if d.failAll.Load() || d.failSets.Load() {
		return errDiskDown
	}
	return d.DiskTier.Set(key, value)
}

func (d *spyDisk) calls() int32 {
	return d.gets.Load() + d.sets.Load() + d.ensures.Load()
}

type harness struct {
	cache   *sprite.Cache
	fetcher *fetcherMock
	disk    *spyDisk
	memory  *cache.MemoryCache
	dir     string
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "assets", "cache")
	return newHarnessAt(t, dir, filepath.Join(t.TempDir(), "settings.yaml"))
}

func newHarnessAt(t *testing.T, dir, settingsPath string) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		fetcher: new(fetcherMock),
		disk:    &spyDisk{DiskTier: cache.NewFileCache(dir)},
		memory:  cache.NewMemoryCache(0),
		dir:     dir,
		logs:    logs,
	}

	c, err := sprite.New(sprite.Options{
		Memory:       h.memory,
		Disk:         h.disk,
		Fetcher:      h.fetcher,
		Decoder:      imaging.StdDecoder{},
		HashAlgo:     hashutil.HashAlgoBLAKE3,
		SettingsPath: settingsPath,
	}, zap.New(core))
	require.NoError(t, err)
	h.cache = c
	return h
}

func (h *harness) path(ref string) string {
	return filepath.Join(h.dir, h.cache.Key(ref)+".png")
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
