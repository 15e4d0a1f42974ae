package thumbnails

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/lyzr/colorsort/common/clients"
	"golang.org/x/sync/errgroup"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// FileCache makes thumbnails available as local files for the duration of a callback
type FileCache struct {
	client      *clients.HTTPClient
	tempDir     string
	concurrency int
	validator   *URLValidator
	logger      Logger
}

// NewFileCache creates a file cache. tempDir may be empty to use the OS default.
func NewFileCache(client *clients.HTTPClient, tempDir string, concurrency int, logger Logger) *FileCache {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &FileCache{
		client:      client,
		tempDir:     tempDir,
		concurrency: concurrency,
		validator:   NewURLValidator(),
		logger:      logger,
	}
}

// Batch fetches remote locations into a temporary directory and calls fn with
// one local path per location, in order. Local locations are passed through.
// Fetched files are removed when Batch returns.
func (f *FileCache) Batch(ctx context.Context, locs []Location, fn func(paths []string) error) error {
	paths := make([]string, len(locs))

	var remote []int
	for i, loc := range locs {
		if loc.Remote {
			remote = append(remote, i)
		} else {
			paths[i] = loc.Path
		}
	}

	if len(remote) > 0 {
		dir, err := os.MkdirTemp(f.tempDir, "colorsort-*")
		if err != nil {
			return fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				f.logger.Warn("failed to remove thumbnail batch", "dir", dir, "error", err)
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.concurrency)

		for _, i := range remote {
			i := i
			dst := filepath.Join(dir, fmt.Sprintf("%d%s", locs[i].ImageID, path.Ext(locs[i].Path)))
			paths[i] = dst

			g.Go(func() error {
				return f.fetch(gctx, locs[i].Path, dst)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		f.logger.Debug("thumbnail batch fetched", "count", len(remote), "dir", dir)
	}

	return fn(paths)
}

func (f *FileCache) fetch(ctx context.Context, url, dst string) error {
	if err := f.validator.Validate(url); err != nil {
		return fmt.Errorf("refusing to fetch %s: %w", url, err)
	}

	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := f.client.Download(ctx, url, file); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
