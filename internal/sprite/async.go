package sprite

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"pokesprite/internal/imaging"
)

type Result struct {
	Reference string
	Sprite    *imaging.Sprite
	OK        bool
}

// ResolveAsync runs Resolve on its own goroutine. The channel receives
// exactly one Result and is then closed.
func (c *Cache) ResolveAsync(ctx context.Context, reference string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		s, ok := c.Resolve(ctx, reference)
		out <- Result{Reference: reference, Sprite: s, OK: ok}
	}()
	return out
}

// Warmup resolves refs with at most workers concurrent resolutions and
// returns how many produced a sprite. It stops handing out work once ctx is done.
func (c *Cache) Warmup(ctx context.Context, refs []string, workers int) int {
	if len(refs) == 0 {
		return 0
	}
	if workers <= 0 {
		workers = 1
	}

	c.logger.Info("Starting sprite warmup", zap.Int("sprites", len(refs)), zap.Int("workers", workers))

	workerChan := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var resolved atomic.Int64

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		workerChan <- struct{}{}

		go func(ref string) {
			defer wg.Done()
			defer func() { <-workerChan }()

			if _, ok := c.Resolve(ctx, ref); ok {
				resolved.Add(1)
			} else {
				c.logger.Debug("Warmup sprite failed", zap.String("reference", ref))
			}
		}(ref)
	}

	wg.Wait()
	c.logger.Info("Sprite warmup completed", zap.Int64("resolved", resolved.Load()))
	return int(resolved.Load())
}
