package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
)

// MockPreviewStore is an in-memory PreviewStore that counts releases per handle
type MockPreviewStore struct {
	mu       sync.Mutex
	next     int
	live     map[string]*domain.ImageAsset
	released map[string]int

	CreateErr error
}

// NewMockPreviewStore creates an empty preview store
func NewMockPreviewStore() *MockPreviewStore {
	return &MockPreviewStore{
		live:     make(map[string]*domain.ImageAsset),
		released: make(map[string]int),
	}
}

// Create registers a preview for the asset
func (m *MockPreviewStore) Create(asset *domain.ImageAsset) (domain.PreviewHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return domain.PreviewHandle{}, m.CreateErr
	}

	m.next++
	id := fmt.Sprintf("preview-%d", m.next)
	m.live[id] = asset
	return domain.PreviewHandle{ID: id, Path: "/tmp/" + id}, nil
}

// Release frees a preview; a second release of the same handle fails
func (m *MockPreviewStore) Release(h domain.PreviewHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.released[h.ID]++
	if _, ok := m.live[h.ID]; !ok {
		return fmt.Errorf("preview not found: %s", h.ID)
	}
	delete(m.live, h.ID)
	return nil
}

// Live returns the number of previews not yet released
func (m *MockPreviewStore) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// ReleaseCount returns how many times the handle was released
func (m *MockPreviewStore) ReleaseCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[id]
}

// MockFileOpener records opened paths
type MockFileOpener struct {
	mu     sync.Mutex
	Opened []string
	Err    error
}

// Open records the path
func (m *MockFileOpener) Open(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opened = append(m.Opened, path)
	return m.Err
}
