package remote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/model"
)

func TestIsRemote(t *testing.T) {
	for uri, want := range map[string]bool{
		"s3://bucket/key.json":  true,
		"S3://bucket/key.json":  true,
		"s3a://bucket/key.json": true,
		"S3A://bucket/key.json": true,
		"/data/key.json":        false,
		"data/s3://x":           false,
		"":                      false,
		"s3:/bucket":            false,
	} {
		assert.Equal(t, want, IsRemote(uri), uri)
	}
}

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://my-bucket/path/to/data.json")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/data.json", key)

	bucket, key, err = ParseURI("S3A://b/k")
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "k", key)

	for _, bad := range []string{"", "/local/file", "s3://bucket", "s3:///key", "s3://bucket/"} {
		_, _, err := ParseURI(bad)
		assert.ErrorIs(t, err, model.ErrInvalid, bad)
	}
}

func TestResolveImageURI(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name, file, dataset, want string
	}{
		{"absolute", "/images/a.jpg", "s3://b/d/data.json", "/images/a.jpg"},
		{"home", "~/images/a.jpg", "/data/data.json", filepath.Join(home, "images/a.jpg")},
		{"remote passthrough", "s3://other/a.jpg", "/data/data.json", "s3://other/a.jpg"},
		{"remote nested", "a.jpg", "s3://b/d/e/data.json", "s3://b/d/e/a.jpg"},
		{"remote root", "imgs/a.jpg", "s3a://b/data.json", "s3://b/imgs/a.jpg"},
		{"local", "imgs/a.jpg", "/data/set/data.json", filepath.Join("/data/set", "imgs/a.jpg")},
		{"local home dataset", "a.jpg", "~/set/data.json", filepath.Join(home, "set", "a.jpg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveImageURI(tt.file, tt.dataset))
		})
	}
}

func TestCacheDir(t *testing.T) {
	c := NewCacheDir("/tmp/cache")

	uri := "s3://bucket/data/annotations.json"
	dp := c.DatasetPath(uri)
	assert.Equal(t, "/tmp/cache/datasets", filepath.Dir(dp))
	assert.Equal(t, ".json", filepath.Ext(dp))
	assert.Len(t, filepath.Base(dp), 32+len(".json"))

	mp := c.MetadataPath(uri)
	assert.Equal(t, dp[:len(dp)-len(".json")]+".metadata", mp)

	assert.Equal(t, ".png", filepath.Ext(c.ImagePath("s3://bucket/img/a.png")))
	assert.Equal(t, ".jpg", filepath.Ext(c.ImagePath("s3://bucket/img/noext")))
	assert.Equal(t, "/tmp/cache/datasets/images", filepath.Dir(c.ImagePath("s3://bucket/img/a.png")))
	assert.NotEqual(t, c.ImagePath("s3://bucket/a.png"), c.ImagePath("s3://bucket/b.png"))
}

func TestDefaultCacheRoot(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	t.Setenv("LOCALAPPDATA", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "labelstore"), DefaultCacheRoot())
	assert.Equal(t, filepath.Join("/xdg", "labelstore"), NewCacheDir("").Root())
}
