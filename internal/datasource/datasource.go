package datasource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/cache"
	"github.com/spectriclabs/tunnel-data-service/internal/config"
	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

// Source opens dataset files by path and lists the datasets of a directory.
type Source interface {
	Open(name string) (io.ReadCloser, error)
	ListDatasets(ctx context.Context, directory string) ([]string, error)
}

// Local reads files from the local filesystem.
type Local struct{}

// Open opens the named file for reading.
func (Local) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// ListDatasets returns the sorted names of the subdirectories of directory
// holding a <name>/<name>.config manifest.
func (Local) ListDatasets(ctx context.Context, directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, errors.Wrapf(err, "reading path %s", directory)
	}
	datasets := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest := tunnel.ManifestPath(entry.Name(), directory)
		if fi, err := os.Stat(manifest); err == nil && fi.Mode().IsRegular() {
			datasets = append(datasets, entry.Name())
		}
	}
	sort.Strings(datasets)
	return datasets, nil
}

// ObjectClient is the part of the minio client used by Minio.
type ObjectClient interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Minio reads objects from a bucket. File paths are used as object keys,
// with forward slashes. Fetched objects are kept in the cache when one is
// set.
type Minio struct {
	Client ObjectClient
	Bucket string
	Cache  *cache.Cache
	Logger *zap.Logger
}

// NewMinio connects to the minio server of location.
func NewMinio(location config.Location, tdsCache *cache.Cache, logger *zap.Logger) (*Minio, error) {
	start := time.Now()
	client, err := minio.New(
		location.Location,
		&minio.Options{
			Creds:  credentials.NewStaticV4(location.MinioAccessKey, location.MinioSecretKey, ""),
			Secure: location.MinioSecure,
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to minio at %s", location.Location)
	}
	logger.Debug(
		"Connected to minio",
		zap.String("location_name", location.LocationName),
		zap.String("endpoint", location.Location),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Minio{Client: client, Bucket: location.MinioBucket, Cache: tdsCache, Logger: logger}, nil
}

// Open returns the object at key name, from the cache when present.
// A missing object yields an error satisfying os.IsNotExist.
func (m *Minio) Open(name string) (io.ReadCloser, error) {
	key := objectKey(name)
	cacheFileName := cache.KeyToCacheFileName(path.Join(m.Bucket, key))

	if m.Cache != nil {
		if file, err := m.Cache.GetItemFromCache(cacheFileName, cache.MinioSubDir); err == nil {
			m.Logger.Debug("Minio object served from cache", zap.String("key", key))
			return file, nil
		}
	}

	start := time.Now()
	data, err := m.fetch(key)
	if err != nil {
		return nil, err
	}
	m.Logger.Debug(
		"Fetched minio object",
		zap.String("bucket", m.Bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if m.Cache != nil {
		if err := m.Cache.PutItemInCache(cacheFileName, cache.MinioSubDir, data); err != nil {
			m.Logger.Warn("Error caching minio object", zap.String("key", key), zap.Error(err))
		}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ListDatasets returns the sorted dataset names under the directory prefix:
// the <name> of every <name>/<name>.config object found there.
func (m *Minio) ListDatasets(ctx context.Context, directory string) ([]string, error) {
	prefix := objectKey(directory)
	if prefix == "." || prefix == "" {
		prefix = ""
	} else {
		prefix += "/"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	datasets := []string{}
	for object := range m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, translateMinioError(object.Err, m.Bucket, prefix)
		}
		rel := strings.TrimPrefix(object.Key, prefix)
		dataset, file, ok := strings.Cut(rel, "/")
		if ok && file == dataset+tunnel.ManifestSuffix {
			datasets = append(datasets, dataset)
		}
	}
	sort.Strings(datasets)
	m.Logger.Debug(
		"Listed minio datasets",
		zap.String("bucket", m.Bucket),
		zap.String("prefix", prefix),
		zap.Int("datasets", len(datasets)),
	)
	return datasets, nil
}

// objectKey turns a file path into an object key: forward slashes, no
// leading slash.
func objectKey(name string) string {
	return strings.TrimLeft(path.Clean(filepath.ToSlash(name)), "/")
}

func (m *Minio) fetch(key string) ([]byte, error) {
	ctx := context.Background()
	object, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioError(err, m.Bucket, key)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, translateMinioError(err, m.Bucket, key)
	}
	return data, nil
}

func translateMinioError(err error, bucket, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return &os.PathError{Op: "get", Path: path.Join(bucket, key), Err: os.ErrNotExist}
	}
	return errors.Wrapf(err, "reading minio object %s/%s", bucket, key)
}

// OpenDataSource resolves a configured location into a Source and the
// directory to pass to the dataset index.
func OpenDataSource(
	configuration *config.Configuration,
	tdsCache *cache.Cache,
	logger *zap.Logger,
	locationName string,
) (Source, string, error) {
	currentLocation, ok := configuration.FindLocation(locationName)
	if !ok {
		return nil, "", errors.Errorf("couldn't find location %s", locationName)
	}

	switch currentLocation.LocationType {
	case config.LocalFile:
		logger.Debug(
			"Reading local files",
			zap.String("location_name", locationName),
			zap.String("path", currentLocation.Path),
		)
		return Local{}, currentLocation.Path, nil
	case config.Minio:
		if !configuration.UseCache {
			tdsCache = nil
		}
		source, err := NewMinio(currentLocation, tdsCache, logger)
		if err != nil {
			return nil, "", err
		}
		return source, currentLocation.Path, nil
	default:
		return nil, "", errors.Errorf("unsupported location type %s in %s", currentLocation.LocationType, currentLocation.LocationName)
	}
}
