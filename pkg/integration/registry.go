package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Clean1ines/shazamio/pkg/operations"
)

// Handler обслуживает один вызов сервиса со слабо типизированными параметрами.
type Handler func(ctx context.Context, params operations.Params) (json.RawMessage, error)

// Registry - сервисы, доступные хосту по имени.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register привязывает имя к обработчику; повторная привязка заменяет прежнюю.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Services возвращает зарегистрированные имена в алфавитном порядке.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call вызывает сервис по имени.
func (r *Registry) Call(ctx context.Context, name string, params operations.Params) (json.RawMessage, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", operations.ErrUnknownOperation, name)
	}
	if params == nil {
		params = operations.Params{}
	}
	return h(ctx, params)
}
