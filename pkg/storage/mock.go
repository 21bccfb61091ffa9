package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	snapshots  map[uuid.UUID][]byte
	adventures map[string]*adventure.Adventure
	pingError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		snapshots:  make(map[uuid.UUID][]byte),
		adventures: make(map[string]*adventure.Adventure),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// AddAdventure registers a document under id.
func (m *MockStorage) AddAdventure(id string, doc *adventure.Adventure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adventures[id] = doc
}

// SessionCount returns the number of stored snapshots.
func (m *MockStorage) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SaveSnapshot stores a JSON copy so callers cannot mutate saved state.
func (m *MockStorage) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = data
	return nil
}

func (m *MockStorage) LoadSnapshot(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	m.mu.RLock()
	data, exists := m.snapshots[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *MockStorage) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}

func (m *MockStorage) ListAdventures(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.adventures))
	for id, doc := range m.adventures {
		result[id] = doc.Title
	}
	return result, nil
}

func (m *MockStorage) GetAdventure(ctx context.Context, id string) (*adventure.Adventure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, exists := m.adventures[id]
	if !exists {
		return nil, nil
	}
	return doc, nil
}
