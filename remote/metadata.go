package remote

import (
	"strings"
	"time"

	"github.com/hupe1980/labelstore/codec"
	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/model"
)

// Metadata is the sidecar written next to a cached dataset.
type Metadata struct {
	ETag          string  `json:"etag"`
	ContentLength *int64  `json:"content_length"`
	CachedAt      float64 `json:"cached_at"`
	SourceURI     string  `json:"source_uri"`
}

// NewMetadata builds a sidecar for uri stamped with the current time.
func NewMetadata(uri string, info ObjectInfo) Metadata {
	return Metadata{
		ETag:          TrimETag(info.ETag),
		ContentLength: info.ContentLength,
		CachedAt:      float64(time.Now().UnixNano()) / 1e9,
		SourceURI:     uri,
	}
}

// CachedTime returns CachedAt as a time.Time.
func (m Metadata) CachedTime() time.Time {
	sec := int64(m.CachedAt)
	return time.Unix(sec, int64((m.CachedAt-float64(sec))*1e9))
}

// TrimETag strips the surrounding quotes object stores put around ETags.
func TrimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// ReadMetadata reads a sidecar. Missing files fail with the underlying
// os.ErrNotExist, undecodable ones with a KindParse error.
func ReadMetadata(fsys fs.FileSystem, path string) (*Metadata, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, &model.Error{Kind: model.KindParse, Op: "read metadata", Msg: path, Err: err}
	}
	return &m, nil
}

// WriteMetadata stores a sidecar atomically.
func WriteMetadata(fsys fs.FileSystem, path string, m Metadata) error {
	data, err := codec.MarshalPretty(codec.Default, m)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, path, data, 0o644)
}
