package remote

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-memory ObjectStore for testing.
// It counts requests per operation and can inject failures.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	calls   map[string]int
	fail    map[string][]error
}

type memoryObject struct {
	data        []byte
	etag        string
	contentType string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		calls:   make(map[string]int),
		fail:    make(map[string][]error),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// Seed stores an object without counting a request and returns its ETag.
func (m *MemoryStore) Seed(bucket, key string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(bucket, key, data, "")
}

func (m *MemoryStore) putLocked(bucket, key string, data []byte, contentType string) string {
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	m.objects[objectKey(bucket, key)] = memoryObject{
		data:        slices.Clone(data),
		etag:        etag,
		contentType: contentType,
	}
	return etag
}

// FailNext makes the next len(errs) calls of op ("get", "put" or "head")
// return the given errors in order.
func (m *MemoryStore) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = append(m.fail[op], errs...)
}

// Calls returns how many requests of op were served, failed ones included.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// ContentType returns the content type of the last upload of an object.
func (m *MemoryStore) ContentType(bucket, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objectKey(bucket, key)].contentType
}

// Object returns a copy of the stored bytes.
func (m *MemoryStore) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey(bucket, key)]
	return slices.Clone(obj.data), ok
}

func (m *MemoryStore) begin(op string) error {
	m.calls[op]++
	if errs := m.fail[op]; len(errs) > 0 {
		m.fail[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (m *MemoryStore) lookupLocked(bucket, key string) (memoryObject, error) {
	obj, ok := m.objects[objectKey(bucket, key)]
	if !ok {
		return memoryObject{}, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
	}
	return obj, nil
}

// Get implements ObjectStore.
func (m *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("get"); err != nil {
		return nil, ObjectInfo{}, err
	}
	obj, err := m.lookupLocked(bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	size := int64(len(obj.data))
	return slices.Clone(obj.data), ObjectInfo{ETag: obj.etag, ContentLength: &size}, nil
}

// Put implements ObjectStore.
func (m *MemoryStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("put"); err != nil {
		return ObjectInfo{}, err
	}
	etag := m.putLocked(bucket, key, data, contentType)
	return ObjectInfo{ETag: etag}, nil
}

// Head implements ObjectStore.
func (m *MemoryStore) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("head"); err != nil {
		return ObjectInfo{}, err
	}
	obj, err := m.lookupLocked(bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	size := int64(len(obj.data))
	return ObjectInfo{ETag: obj.etag, ContentLength: &size}, nil
}
