package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasic(t *testing.T) {
	var b Basic
	b.RecordMutation("annotations_added")
	b.RecordMutation("images_deleted")
	b.RecordSave(10*time.Millisecond, 100, nil)
	b.RecordSave(30*time.Millisecond, 0, errors.New("disk full"))
	b.RecordRemote(OpGet, 3, time.Second, nil)
	b.RecordRemote(OpPut, 1, time.Second, errors.New("boom"))
	b.RecordCacheLookup(CacheImage, true)
	b.RecordCacheLookup(CacheDataset, false)

	s := b.Stats()
	assert.Equal(t, int64(2), s.Mutations)
	assert.Equal(t, int64(2), s.Saves)
	assert.Equal(t, int64(1), s.SaveErrors)
	assert.Equal(t, int64(100), s.SaveBytes)
	assert.Equal(t, (20 * time.Millisecond).Nanoseconds(), s.SaveAvgNanos)
	assert.Equal(t, int64(2), s.RemoteCalls)
	assert.Equal(t, int64(2), s.RemoteRetries)
	assert.Equal(t, int64(1), s.RemoteErrors)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
}

func TestVictoria(t *testing.T) {
	v := NewVictoria()
	v.RecordMutation("annotations_added")
	v.RecordSave(time.Millisecond, 42, nil)
	v.RecordRemote(OpHead, 2, time.Millisecond, nil)
	v.RecordCacheLookup(CacheImage, true)

	var buf bytes.Buffer
	v.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `labelstore_mutations_total{op="annotations_added"} 1`)
	assert.Contains(t, out, `labelstore_saves_total 1`)
	assert.Contains(t, out, `labelstore_remote_retries_total{op="head"} 1`)
	assert.Contains(t, out, `labelstore_cache_lookups_total{kind="image",result="hit"} 1`)
}

func TestNoopSatisfiesCollector(t *testing.T) {
	var c Collector = Noop{}
	c.RecordMutation("x")
	c.RecordSave(0, 0, nil)
	c.RecordRemote(OpGet, 1, 0, nil)
	c.RecordCacheLookup(CacheImage, false)
}
