package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and local dry runs.
type Memory struct {
	mu          sync.Mutex
	payloads    map[string][]byte
	versions    map[string]int64
	annotations map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		payloads:    map[string][]byte{},
		versions:    map[string]int64{},
		annotations: map[string][]string{},
	}
}

func (m *Memory) Put(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[key] = append([]byte(nil), payload...)
	return nil
}

func (m *Memory) GetWithVersion(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.payloads[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return append([]byte(nil), payload...), m.versions[key], nil
}

func (m *Memory) PutWithVersion(_ context.Context, key string, payload []byte, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[key] != version-1 {
		return ErrVersionConflict
	}
	m.payloads[key] = append([]byte(nil), payload...)
	m.versions[key] = version
	return nil
}

func (m *Memory) AppendAnnotation(_ context.Context, key, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations[key] = append(m.annotations[key], note)
	return nil
}

func (m *Memory) Annotations(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.annotations[key]...), nil
}
