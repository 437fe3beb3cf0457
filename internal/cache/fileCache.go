package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PurgeOnce removes the oldest cache files in cachePath until the total size
// of the regular files there is at most maxBytes. Files not written by the
// cache are counted but never removed. It returns the number of files removed.
func PurgeOnce(cachePath string, maxBytes int64, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(cachePath)
	if err != nil {
		return 0, err
	}

	type cachedFile struct {
		name    string
		size    int64
		modTime time.Time
	}
	var (
		currentBytes int64
		candidates   []cachedFile
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		currentBytes += info.Size()
		if strings.HasPrefix(entry.Name(), FilePrefix) && !strings.HasSuffix(entry.Name(), ".part") {
			candidates = append(candidates, cachedFile{entry.Name(), info.Size(), info.ModTime()})
		}
	}

	removed := 0
	for currentBytes > maxBytes && len(candidates) > 0 {
		oldest := 0
		for i := range candidates {
			if candidates[i].modTime.Before(candidates[oldest].modTime) {
				oldest = i
			}
		}
		victim := candidates[oldest]
		candidates = append(candidates[:oldest], candidates[oldest+1:]...)

		logger.Info("Cache over maximum, removing old file", zap.String("file", victim.name))
		if err := os.Remove(filepath.Join(cachePath, victim.name)); err != nil {
			logger.Error("Error removing cache file", zap.String("file", victim.name), zap.Error(err))
			continue
		}
		currentBytes -= victim.size
		removed++
	}
	if currentBytes > maxBytes {
		logger.Warn(
			"Cache still over maximum; directory holds files not written by the cache",
			zap.String("path", cachePath),
			zap.Int64("bytes", currentBytes),
		)
	}
	return removed, nil
}

// CheckCache runs PurgeOnce every `checkInterval` seconds until ctx is done.
func CheckCache(ctx context.Context, cachePath string, checkInterval int, maxBytes int64, logger *zap.Logger) {
	if checkInterval < 1 {
		checkInterval = 1
	}
	ticker := time.NewTicker(time.Duration(checkInterval) * time.Second)
	defer ticker.Stop()
	for {
		if _, err := PurgeOnce(cachePath, maxBytes, logger); err != nil {
			logger.Error("CheckCache error", zap.String("path", cachePath), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
