package thread

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*Thread)}
}

func (m *MemoryStore) Create(_ context.Context, t Thread) (Thread, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Turns = stamp(append([]Turn(nil), t.Turns...))

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := t
	m.threads[t.ID] = &stored
	return clone(stored), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[id]
	if !ok {
		return Thread{}, ErrNotFound
	}
	return clone(*t), nil
}

func (m *MemoryStore) Append(_ context.Context, id string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return ErrNotFound
	}
	t.Turns = append(t.Turns, stamp(append([]Turn(nil), turns...))...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func clone(t Thread) Thread {
	t.Turns = append([]Turn(nil), t.Turns...)
	return t
}

func stamp(turns []Turn) []Turn {
	now := time.Now().UTC()
	for i := range turns {
		if turns[i].CreatedAt.IsZero() {
			turns[i].CreatedAt = now
		}
	}
	return turns
}
