package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httphandlers "pokesprite/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog and sprites over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		return a.serve()
	},
}

func (a *app) serve() error {
	cfg, log := a.cfg, a.log

	log.Info("Starting pokesprite server",
		zap.Int("port", cfg.Port),
		zap.String("cache_dir", cfg.CacheDir),
		zap.String("base_url", a.catalog.BaseURL()),
	)

	handlers := httphandlers.New(cfg, log, a.catalog, a.sprites)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WarmupSprites > 0 {
		go a.warmupCatalog(ctx, cfg.WarmupSprites, cfg.WarmupWorkers)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
	return nil
}

// warmupCatalog prefetches the sprites of the first limit catalog entries.
func (a *app) warmupCatalog(ctx context.Context, limit, workers int) int {
	refs, err := a.catalogSprites(ctx, limit)
	if err != nil {
		a.log.Warn("Sprite warmup skipped", zap.Error(err))
		return 0
	}

	return a.sprites.Warmup(ctx, refs, workers)
}
