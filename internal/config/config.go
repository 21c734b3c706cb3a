package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSpriteSize   = 96
	DefaultBaseURL      = "https://pokeapi.co/api/v2"
	DefaultCacheTimeout = 3600
	DefaultMaxRetries   = 3
)

var ErrSettingsNotFound = errors.New("settings file not found")

// Settings mirrors config/settings.yaml.
type Settings struct {
	Sprites SpriteSettings `yaml:"sprites"`
	API     APISettings    `yaml:"api"`
}

type SpriteSettings struct {
	Size int `yaml:"size"`
}

type APISettings struct {
	BaseURL      string `yaml:"base_url"`
	CacheTimeout int    `yaml:"cache_timeout"` // seconds
	MaxRetries   int    `yaml:"max_retries"`
}

func DefaultSettings() Settings {
	return Settings{
		Sprites: SpriteSettings{Size: DefaultSpriteSize},
		API: APISettings{
			BaseURL:      DefaultBaseURL,
			CacheTimeout: DefaultCacheTimeout,
			MaxRetries:   DefaultMaxRetries,
		},
	}
}

// CacheTimeout returns api.cache_timeout as a duration.
func (s Settings) CacheTimeout() time.Duration {
	return time.Duration(s.API.CacheTimeout) * time.Second
}

// LoadSettings reads the settings file at path. Keys that are absent keep
// their defaults, as do non-positive sizes and timeouts. api.max_retries may
// be zero to disable retries; a negative value is an error. A missing file
// returns the defaults together with ErrSettingsNotFound so the caller can
// decide how loud to be.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, fmt.Errorf("%w: %s", ErrSettingsNotFound, path)
		}
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}

	var parsed struct {
		Sprites SpriteSettings `yaml:"sprites"`
		API     struct {
			BaseURL      string `yaml:"base_url"`
			CacheTimeout int    `yaml:"cache_timeout"`
			MaxRetries   *int   `yaml:"max_retries"`
		} `yaml:"api"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return settings, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if parsed.API.MaxRetries != nil && *parsed.API.MaxRetries < 0 {
		return settings, fmt.Errorf("invalid api.max_retries in %s: %d", path, *parsed.API.MaxRetries)
	}

	if parsed.Sprites.Size > 0 {
		settings.Sprites.Size = parsed.Sprites.Size
	}
	if parsed.API.BaseURL != "" {
		settings.API.BaseURL = parsed.API.BaseURL
	}
	if parsed.API.CacheTimeout > 0 {
		settings.API.CacheTimeout = parsed.API.CacheTimeout
	}
	if parsed.API.MaxRetries != nil {
		settings.API.MaxRetries = *parsed.API.MaxRetries
	}

	return settings, nil
}

// SpriteSize re-reads sprites.size from the settings file on every call.
// Any failure, or a missing or non-positive value, yields DefaultSpriteSize
// alongside the error that caused the fallback.
func SpriteSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSpriteSize, err
	}

	var parsed struct {
		Sprites struct {
			Size *int `yaml:"size"`
		} `yaml:"sprites"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return DefaultSpriteSize, err
	}
	if parsed.Sprites.Size == nil {
		return DefaultSpriteSize, errors.New("sprites.size not set")
	}
	if *parsed.Sprites.Size <= 0 {
		return DefaultSpriteSize, fmt.Errorf("invalid sprites.size: %d", *parsed.Sprites.Size)
	}
	return *parsed.Sprites.Size, nil
}

type Config struct {
	Port               int
	LogLevel           string
	LogFile            string
	SettingsPath       string
	CacheDir           string
	CatalogDB          string
	MemoryCache        string
	MemoryCacheSprites int
	Decoder            string
	VipsMaxCacheMB     int
	VipsConcurrency    int
	CacheKeyHash       string
	FetchTimeout       time.Duration
	WarmupSprites      int
	WarmupWorkers      int
	AllowedOrigin      string
	UserAgent          string

	Settings Settings
}

// Load reads process settings from the environment. The settings file is not
// read here; see LoadSettings.
func Load() *Config {
	cacheDir := getEnv("CACHE_DIR", filepath.Join("assets", "cache"))

	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		SettingsPath:       getEnv("SETTINGS_PATH", filepath.Join("config", "settings.yaml")),
		CacheDir:           cacheDir,
		CatalogDB:          getEnv("CATALOG_DB", filepath.Join(filepath.Dir(cacheDir), "catalog.bbolt")),
		MemoryCache:        getEnv("MEMORY_CACHE", "unbounded"),
		MemoryCacheSprites: getEnvInt("MEMORY_CACHE_SPRITES", 512),
		Decoder:            getEnv("DECODER", "vips"),
		VipsMaxCacheMB:     getEnvInt("VIPS_MAX_CACHE_MB", 64),
		VipsConcurrency:    getEnvInt("VIPS_CONCURRENCY", 1),
		CacheKeyHash:       getEnv("CACHE_KEY_HASH", "blake3"),
		FetchTimeout:       time.Duration(getEnvInt("FETCH_TIMEOUT", 30)) * time.Second,
		WarmupSprites:      getEnvInt("WARMUP_SPRITES", 0),
		WarmupWorkers:      getEnvInt("WARMUP_WORKERS", 4),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", ""),
		UserAgent:          getEnv("USER_AGENT", "pokesprite/1.0"),
		Settings:           DefaultSettings(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
