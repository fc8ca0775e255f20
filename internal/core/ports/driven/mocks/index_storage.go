package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// MockIndexStorage is an in-memory IndexStorage for testing
type MockIndexStorage struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Custom behavior hooks (optional)
	PutFn func(location string, data []byte) error
}

// NewMockIndexStorage creates a new MockIndexStorage
func NewMockIndexStorage() *MockIndexStorage {
	return &MockIndexStorage{data: make(map[string][]byte)}
}

func (m *MockIndexStorage) Get(ctx context.Context, location string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[location]
	if !ok {
		return nil, domain.ErrIndexNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MockIndexStorage) Put(ctx context.Context, location string, data []byte) error {
	if m.PutFn != nil {
		if err := m.PutFn(location, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	m.data[location] = b
	return nil
}

func (m *MockIndexStorage) Exists(ctx context.Context, location string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[location]
	return ok, nil
}

func (m *MockIndexStorage) Delete(ctx context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, location)
	return nil
}

// Corrupt overwrites stored content (for test setup)
func (m *MockIndexStorage) Corrupt(location string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[location] = data
}

// Len returns the number of stored locations
func (m *MockIndexStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// MockUploadStore is an in-memory UploadStore for testing
type MockUploadStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMockUploadStore creates a new MockUploadStore
func NewMockUploadStore() *MockUploadStore {
	return &MockUploadStore{files: make(map[string][]byte)}
}

func (m *MockUploadStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}

func (m *MockUploadStore) Read(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MockUploadStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

// Has reports whether a file is stored
func (m *MockUploadStore) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok
}
