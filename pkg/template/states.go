package template

import (
	"context"
	"sync"
)

// StateReader отдает состояния сущностей хоста.
type StateReader interface {
	State(ctx context.Context, entityID string) (string, bool, error)
	Attribute(ctx context.Context, entityID, attr string) (any, bool, error)
}

// State - значение сущности и ее атрибуты.
type State struct {
	Value      string
	Attributes map[string]any
}

// MapStates хранит состояния в памяти; безопасен для конкурентного доступа.
type MapStates struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMapStates() *MapStates {
	return &MapStates{states: make(map[string]State)}
}

func (m *MapStates) Set(entityID string, s State) {
	m.mu.Lock()
	m.states[entityID] = s
	m.mu.Unlock()
}

func (m *MapStates) Delete(entityID string) {
	m.mu.Lock()
	delete(m.states, entityID)
	m.mu.Unlock()
}

func (m *MapStates) State(ctx context.Context, entityID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[entityID]
	return s.Value, ok, nil
}

func (m *MapStates) Attribute(ctx context.Context, entityID, attr string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[entityID]
	if !ok {
		return nil, false, nil
	}
	v, ok := s.Attributes[attr]
	return v, ok, nil
}
