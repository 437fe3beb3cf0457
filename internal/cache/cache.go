package cache

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FilePrefix marks files written by the cache. The purge loop only removes
// files carrying it.
const FilePrefix = "tds_"

// MinioSubDir holds objects fetched from minio locations.
const MinioSubDir = "miniocache"

// Cache stores fetched files under Location.
type Cache struct {
	Location string
}

// KeyToCacheFileName turns an object key (bucket plus path) into a flat
// cache file name.
func KeyToCacheFileName(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "", "?", "_", "&", "", "=", "")
	return FilePrefix + replacer.Replace(strings.TrimLeft(key, "/"))
}

func (c *Cache) fullPath(cacheFileName string, subDir string) string {
	return filepath.Join(c.Location, subDir, cacheFileName)
}

// GetItemFromCache opens the file `cacheFileName` within the `subDir`
// directory. The error satisfies os.IsNotExist on a cache miss.
func (c *Cache) GetItemFromCache(cacheFileName string, subDir string) (io.ReadCloser, error) {
	return os.Open(c.fullPath(cacheFileName, subDir))
}

// PutItemInCache places `data` into file denoted by `cacheFileName`
// within `subDir`
func (c *Cache) PutItemInCache(cacheFileName string, subDir string, data []byte) error {
	fullPath := c.fullPath(cacheFileName, subDir)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errors.Wrap(err, "creating cache directory")
	}
	// Write to a temporary name so readers never see a partial file.
	tmp := fullPath + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "writing cache file")
	}
	return errors.Wrap(os.Rename(tmp, fullPath), "renaming cache file")
}

// Setup creates the cache directories.
func (c *Cache) Setup() error {
	return errors.Wrap(os.MkdirAll(filepath.Join(c.Location, MinioSubDir), 0755), "creating cache directory")
}
