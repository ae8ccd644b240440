package testsupport

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory objectstore.Store with failure injection.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]MemoryObject
	puts    int
	// FailKeys makes Put fail for any key containing one of these substrings.
	FailKeys []string
}

// MemoryObject is a stored object.
type MemoryObject struct {
	Body        []byte
	ContentType string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject)}
}

// Put records the object, replacing any previous one under key.
func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, fail := range m.FailKeys {
		if strings.Contains(key, fail) {
			return fmt.Errorf("injected failure for %s", key)
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Body: data, ContentType: contentType}
	m.puts++
	return nil
}

// URL returns a fake public locator.
func (m *MemoryStore) URL(key string) string {
	return "http://localhost:9000/stream-bucket/" + key
}

// Keys lists stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Object returns a stored object.
func (m *MemoryStore) Object(key string) (MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Puts counts successful Put calls.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
