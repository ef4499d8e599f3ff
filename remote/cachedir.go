package remote

import (
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/hupe1980/labelstore/internal/hash"
)

// DefaultImageExt is used for image locators without an extension.
const DefaultImageExt = ".jpg"

// CacheDir computes the content-addressed cache layout under a root.
type CacheDir struct {
	root string
}

// NewCacheDir returns the layout rooted at root, or at DefaultCacheRoot if
// root is empty.
func NewCacheDir(root string) CacheDir {
	if root == "" {
		root = DefaultCacheRoot()
	}
	return CacheDir{root: ExpandHome(root)}
}

// DefaultCacheRoot returns the platform cache location:
// $LOCALAPPDATA on Windows, $XDG_CACHE_HOME elsewhere, falling back to
// ~/.cache, with "labelstore" appended.
func DefaultCacheRoot() string {
	env := "XDG_CACHE_HOME"
	if runtime.GOOS == "windows" {
		env = "LOCALAPPDATA"
	}
	base := os.Getenv(env)
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".cache")
		} else {
			base = filepath.Join(os.TempDir(), ".cache")
		}
	}
	return filepath.Join(base, "labelstore")
}

// Root returns the cache root.
func (c CacheDir) Root() string { return c.root }

// DatasetsDir returns the directory holding dataset documents and sidecars.
func (c CacheDir) DatasetsDir() string { return filepath.Join(c.root, "datasets") }

// ImagesDir returns the directory holding cached images.
func (c CacheDir) ImagesDir() string { return filepath.Join(c.DatasetsDir(), "images") }

// DatasetPath returns the cached document path for uri.
func (c CacheDir) DatasetPath(uri string) string {
	return filepath.Join(c.DatasetsDir(), hash.Key(uri)+".json")
}

// MetadataPath returns the sidecar path for uri.
func (c CacheDir) MetadataPath(uri string) string {
	return filepath.Join(c.DatasetsDir(), hash.Key(uri)+".metadata")
}

// ImagePath returns the cached image path for uri, keeping the extension of
// the object key.
func (c CacheDir) ImagePath(uri string) string {
	ext := DefaultImageExt
	if _, key, err := ParseURI(uri); err == nil {
		if e := path.Ext(key); e != "" {
			ext = e
		}
	}
	return filepath.Join(c.ImagesDir(), hash.Key(uri)+ext)
}
