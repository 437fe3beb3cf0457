package tunnel

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the number of channels loaded at once by LoadChannels
// when no worker count is given.
const DefaultWorkers = 4

// LoadResult is the outcome of loading one channel of a batch.
type LoadResult struct {
	Name    string
	Channel *Channel
	Err     error
}

// LoadChannels loads the named channels of a dataset on at most workers
// goroutines and returns one result per name, in the order given. A failed
// channel does not stop the others. Channels not yet started when ctx is
// done report the context error; loads already running are waited for.
// The returned error is only set when the manifest itself cannot be read.
func (ix *Index) LoadChannels(ctx context.Context, dataset, directory string, names []string, workers int) ([]LoadResult, error) {
	descriptors, err := ix.Descriptors(dataset, directory)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Descriptor, len(descriptors))
	for i := len(descriptors) - 1; i >= 0; i-- {
		byName[descriptors[i].Name] = descriptors[i]
	}

	if workers < 1 {
		workers = DefaultWorkers
	}
	results := make([]LoadResult, len(names))
	sema := semaphore.NewWeighted(int64(workers))

	for i, name := range names {
		results[i].Name = name
		d, ok := byName[name]
		if !ok {
			results[i].Err = errors.Wrapf(ErrChannelNotFound, "%s in %s", name, ManifestPath(dataset, directory))
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		if err := sema.Acquire(ctx, 1); err != nil {
			results[i].Err = err
			continue
		}
		go func(r *LoadResult, d Descriptor) {
			defer sema.Release(1)
			r.Channel, r.Err = ix.loader.Load(dataset, directory, d)
		}(&results[i], d)
	}

	// Wait for running loads regardless of ctx.
	if err := sema.Acquire(context.Background(), int64(workers)); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		ix.logger.Warn(
			"Some channels failed to load",
			zap.String("dataset", dataset),
			zap.Int("requested", len(names)),
			zap.Int("failed", failed),
		)
	}
	return results, nil
}
