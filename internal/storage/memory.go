package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryBucket keeps objects in process. Used by tests and by
// STORAGE_BACKEND=memory development runs.
type MemoryBucket struct {
	mu        sync.Mutex
	name      string
	baseURL   string
	objects   map[string]memoryObject
	uploadErr error
	uploads   int
	removes   int
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryBucket creates an empty bucket whose public URLs start with baseURL
func NewMemoryBucket(name, baseURL string) *MemoryBucket {
	return &MemoryBucket{name: name, baseURL: baseURL, objects: make(map[string]memoryObject)}
}

// WithUploadError makes every subsequent Upload fail with err
func (m *MemoryBucket) WithUploadError(err error) *MemoryBucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErr = err
	return m
}

func (m *MemoryBucket) EnsureBucket(context.Context) error { return nil }

func (m *MemoryBucket) Upload(_ context.Context, path, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads++
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if _, exists := m.objects[path]; exists {
		return fmt.Errorf("upload %s: object already exists", path)
	}
	m.objects[path] = memoryObject{contentType: contentType, data: data}
	return nil
}

func (m *MemoryBucket) PublicURL(path string) string {
	return m.baseURL + "/" + m.name + "/" + path
}

func (m *MemoryBucket) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removes++
	if _, ok := m.objects[path]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, path)
	return nil
}

// Paths lists stored object paths in sorted order
func (m *MemoryBucket) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Object returns a stored object's bytes and content type
func (m *MemoryBucket) Object(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, "", false
	}
	return bytes.Clone(obj.data), obj.contentType, true
}

// UploadCalls counts Upload invocations, failed ones included
func (m *MemoryBucket) UploadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

// RemoveCalls counts Remove invocations
func (m *MemoryBucket) RemoveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removes
}
