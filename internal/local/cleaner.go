package local

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner is a local store whose aged records can be dropped.
type Pruner interface {
	Path() string
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// StartCacheCleaner asks every store to prune records older than retention
// on each tick. Ticks where active reports false are skipped: the local files
// are only a cache while a remote store is authoritative.
func StartCacheCleaner(
	ctx context.Context,
	interval time.Duration,
	retention time.Duration,
	active func() bool,
	log *zap.Logger,
	stores ...Pruner,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !active() {
					continue
				}
				cutoff := time.Now().Add(-retention)
				for _, s := range stores {
					removed, err := s.Prune(ctx, cutoff)
					if err != nil {
						log.Error("failed to prune local cache", zap.String("path", s.Path()), zap.Error(err))
						continue
					}
					if removed > 0 {
						log.Info("pruned local cache", zap.String("path", s.Path()), zap.Int("removed", removed))
					}
				}
			}
		}
	}()
}
