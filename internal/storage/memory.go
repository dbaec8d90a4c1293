package storage

import (
	"context"
	"encoding/json"
	"sync"

	"haru/internal/model"
)

// Memory is an in-memory Store. It backs `haru serve --memory` and tests.
// Values are kept JSON-encoded so the round-trip matches the sqlite backend.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, id string) (model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return model.Todo{}, err
	}
	m.mu.RLock()
	raw, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return model.Todo{}, ErrNotFound
	}
	return decodeRecord(id, raw)
}

func (m *Memory) Put(ctx context.Context, todo model.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(todo)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[todo.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(ctx context.Context) ([]model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	todos := make([]model.Todo, 0, len(m.items))
	for key, raw := range m.items {
		todo, err := decodeRecord(key, raw)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		todos = append(todos, todo)
	}
	m.mu.RUnlock()
	model.SortCreatedDesc(todos)
	return todos, nil
}

func (m *Memory) Close() error { return nil }
