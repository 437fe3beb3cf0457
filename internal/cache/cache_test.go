package cache_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/cache"
)

func TestKeyToCacheFileName(t *testing.T) {
	expected := []struct {
		Key    string
		Output string
	}{
		{Key: "shots/t4/x2s100/x2s100A.30.gz", Output: "tds_shots_t4_x2s100_x2s100A.30.gz"},
		{Key: "/bucket/a.config", Output: "tds_bucket_a.config"},
		{Key: "b/c:d", Output: "tds_b_cd"},
	}

	for _, exp := range expected {
		result := cache.KeyToCacheFileName(exp.Key)
		if result != exp.Output {
			t.Errorf("KeyToCacheFileName(%s) returned %s instead of %s", exp.Key, result, exp.Output)
		}
	}
}

func TestPutAndGetItem(t *testing.T) {
	c := &cache.Cache{Location: t.TempDir()}

	_, err := c.GetItemFromCache("tds_missing", cache.MinioSubDir)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, c.PutItemInCache("tds_item", cache.MinioSubDir, []byte("payload")))

	rc, err := c.GetItemFromCache("tds_item", cache.MinioSubDir)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(filepath.Join(c.Location, cache.MinioSubDir, "tds_item.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetup(t *testing.T) {
	c := &cache.Cache{Location: filepath.Join(t.TempDir(), "nested", "cache")}
	require.NoError(t, c.Setup())

	info, err := os.Stat(filepath.Join(c.Location, cache.MinioSubDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPurgeOnce(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	files := []struct {
		Name string
		Age  time.Duration
	}{
		{Name: "tds_oldest", Age: 3 * time.Hour},
		{Name: "tds_middle", Age: 2 * time.Hour},
		{Name: "tds_newest", Age: time.Hour},
		{Name: "other", Age: 4 * time.Hour},
	}
	for _, f := range files {
		p := filepath.Join(dir, f.Name)
		require.NoError(t, os.WriteFile(p, make([]byte, 100), 0644))
		modTime := now.Add(-f.Age)
		require.NoError(t, os.Chtimes(p, modTime, modTime))
	}

	removed, err := cache.PurgeOnce(dir, 250, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for name, exists := range map[string]bool{
		"tds_oldest": false,
		"tds_middle": false,
		"tds_newest": true,
		"other":      true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.Equal(t, exists, err == nil, name)
	}

	// Only files the cache did not write are left over the limit.
	removed, err = cache.PurgeOnce(dir, 50, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(filepath.Join(dir, "other"))
	assert.NoError(t, err)
}

func TestPurgeOnceMissingDirectory(t *testing.T) {
	_, err := cache.PurgeOnce(filepath.Join(t.TempDir(), "missing"), 10, zap.NewNop())
	assert.Error(t, err)
}
