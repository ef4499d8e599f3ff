package remote

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/labelstore/model"
)

var schemes = []string{"s3://", "s3a://"}

// IsRemote reports whether uri names an object-store location.
// The scheme check is case-insensitive.
func IsRemote(uri string) bool {
	_, ok := trimScheme(uri)
	return ok
}

func trimScheme(uri string) (string, bool) {
	for _, s := range schemes {
		if len(uri) >= len(s) && strings.EqualFold(uri[:len(s)], s) {
			return uri[len(s):], true
		}
	}
	return uri, false
}

// ParseURI splits an s3:// or s3a:// locator into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := trimScheme(uri)
	if !ok {
		return "", "", &model.Error{Kind: model.KindInvalid, Op: "parse uri", Msg: "not an object-store uri: " + uri}
	}
	bucket, key, found := strings.Cut(rest, "/")
	switch {
	case !found:
		return "", "", &model.Error{Kind: model.KindInvalid, Op: "parse uri", Msg: "no key: " + uri}
	case bucket == "":
		return "", "", &model.Error{Kind: model.KindInvalid, Op: "parse uri", Msg: "empty bucket: " + uri}
	case key == "":
		return "", "", &model.Error{Kind: model.KindInvalid, Op: "parse uri", Msg: "empty key: " + uri}
	}
	return bucket, key, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

// ResolveImageURI resolves an image file name against the dataset location.
//
// Absolute paths, home-relative paths and object-store locators pass through
// (the home prefix expanded). Relative names resolve against the dataset's
// directory, or its bucket prefix for remote datasets.
func ResolveImageURI(fileName, datasetURI string) string {
	switch {
	case strings.HasPrefix(fileName, "/") || filepath.IsAbs(fileName):
		return fileName
	case strings.HasPrefix(fileName, "~"):
		return ExpandHome(fileName)
	case IsRemote(fileName):
		return fileName
	}

	if IsRemote(datasetURI) {
		bucket, key, err := ParseURI(datasetURI)
		if err == nil {
			dir := path.Dir(key)
			if dir == "." {
				return "s3://" + bucket + "/" + fileName
			}
			return "s3://" + bucket + "/" + dir + "/" + fileName
		}
	}
	return filepath.Join(filepath.Dir(ExpandHome(datasetURI)), fileName)
}
