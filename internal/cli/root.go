package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pokesprite/internal/config"
)

var (
	settingsPath string
	cacheDir     string
	logLevel     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pokesprite",
	Short: "Pokémon sprite cache and catalog service.",
	Long: `pokesprite resolves Pokémon sprite images through a memory tier, an
on-disk PNG cache and finally the network, and serves them together with the
PokeAPI catalog over HTTP.

Every command reads its environment the same way the server does; the flags
below override the matching environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file path (default $SETTINGS_PATH or config/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "sprite cache directory (default $CACHE_DIR or assets/cache)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL or info)")

	rootCmd.AddCommand(serveCmd, listCmd, showCmd, spriteCmd, clearCmd, sizeCmd, warmupCmd, cacheCmd)
}

// loadConfig reads the environment, applies flag overrides and loads the
// settings file. A missing settings file is not an error: the defaults are
// kept and the returned warning says so.
func loadConfig() (cfg *config.Config, warning error, err error) {
	cfg = config.Load()

	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
		if os.Getenv("CATALOG_DB") == "" {
			cfg.CatalogDB = filepath.Join(filepath.Dir(cacheDir), "catalog.bbolt")
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	cfg.Settings = settings
	if err != nil {
		if errors.Is(err, config.ErrSettingsNotFound) {
			return cfg, err, nil
		}
		return nil, nil, err
	}
	return cfg, nil, nil
}

// ResetFlags restores every flag to its zero value between test runs.
func ResetFlags() {
	settingsPath = ""
	cacheDir = ""
	logLevel = ""
	spriteOutput = ""
	clearCatalog = false
	warmupLimit = 0
	warmupWorkers = 0
}
