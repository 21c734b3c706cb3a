package cli

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pokesprite/internal/cache"
	"pokesprite/internal/catalog"
	"pokesprite/internal/config"
	"pokesprite/internal/fetcher"
	"pokesprite/internal/hashutil"
	"pokesprite/internal/imaging"
	"pokesprite/internal/imaging/libvips"
	"pokesprite/internal/logger"
	"pokesprite/internal/retry"
	"pokesprite/internal/sprite"
)

// app holds everything a command needs. It is built once per invocation and
// closed when the command returns.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	sprites *sprite.Cache
	catalog *catalog.Client
	store   *catalog.Store

	closers []func() error
}

func newApp() (*app, error) {
	cfg, warning, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if warning != nil {
		log.Warn("Settings file not found, using defaults", zap.String("settings", cfg.SettingsPath))
	}

	a := &app{cfg: cfg, log: log}
	if err := a.build(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) build() error {
	cfg := a.cfg

	decoder, err := a.newDecoder()
	if err != nil {
		return err
	}

	memory, err := cache.NewMemoryTier(cfg.MemoryCache, cfg.MemoryCacheSprites, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize memory cache: %w", err)
	}

	httpFetcher := fetcher.New(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
		Retry:     retry.NewParam(cfg.Settings.API.MaxRetries + 1),
	}, a.log)

	a.sprites, err = sprite.New(sprite.Options{
		Memory:       memory,
		Disk:         cache.NewFileCache(cfg.CacheDir),
		Fetcher:      httpFetcher,
		Decoder:      decoder,
		HashAlgo:     hashutil.HashAlgo(cfg.CacheKeyHash),
		SettingsPath: cfg.SettingsPath,
	}, a.log)
	if err != nil {
		return err
	}

	a.store, err = catalog.OpenStore(cfg.CatalogDB, cfg.Settings.CacheTimeout())
	if err != nil {
		return fmt.Errorf("failed to open catalog store %s: %w", cfg.CatalogDB, err)
	}
	a.closers = append(a.closers, a.store.Close)

	a.catalog = catalog.NewClient(catalog.Options{
		BaseURL: cfg.Settings.API.BaseURL,
		Fetcher: httpFetcher,
		Store:   a.store,
		TTL:     cfg.Settings.CacheTimeout(),
	}, a.log)

	a.log.Debug("Application assembled",
		zap.String("cache_dir", cfg.CacheDir),
		zap.String("catalog_db", cfg.CatalogDB),
		zap.String("memory_cache", cfg.MemoryCache),
		zap.String("decoder", cfg.Decoder),
		zap.String("cache_key_hash", cfg.CacheKeyHash),
	)
	return nil
}

func (a *app) newDecoder() (imaging.Decoder, error) {
	switch a.cfg.Decoder {
	case "vips":
		shutdown := libvips.Startup(a.cfg.VipsMaxCacheMB, a.cfg.VipsConcurrency, a.log)
		a.closers = append(a.closers, func() error {
			shutdown()
			return nil
		})
		return &libvips.Decoder{Size: a.cfg.Settings.Sprites.Size}, nil
	case "std":
		return imaging.StdDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown decoder: %s (supported: vips, std)", a.cfg.Decoder)
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	_ = a.log.Sync()
	return errs
}

// spriteReference turns a command argument into a sprite URL. Numeric
// arguments are looked up in the catalog; anything else must be a URL.
func (a *app) spriteReference(ctx context.Context, arg string) (string, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return a.catalog.SpriteURL(ctx, id)
	}
	if !sprite.ValidReference(arg) {
		return "", fmt.Errorf("not a pokemon id or sprite url: %q", arg)
	}
	return arg, nil
}

// catalogSprites returns the default sprite URLs of the first limit catalog
// entries (all of them when limit <= 0). Entries without a sprite are skipped.
func (a *app) catalogSprites(ctx context.Context, limit int) ([]string, error) {
	entries, err := a.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		id, ok := e.ID()
		if !ok {
			continue
		}
		ref, err := a.catalog.SpriteURL(ctx, id)
		if err != nil {
			a.log.Debug("No sprite for catalog entry", zap.String("name", e.Name), zap.Error(err))
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
