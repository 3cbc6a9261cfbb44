package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Clean1ines/shazamio/pkg/metrics"
)

// ResponseEvent - имя события с результатом операции.
const ResponseEvent = "ha_shazamio_response"

// Event - результат операции для подписчиков.
type Event struct {
	Type    string          `json:"-"`
	Service string          `json:"service"`
	Data    json.RawMessage `json:"data"`
}

// Payload - тело события {"service": ..., "data": ...}.
func (e Event) Payload() ([]byte, error) {
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return json.Marshal(Event{Service: e.Service, Data: data})
}

// Bus публикует события. Ошибка публикации не влияет на результат операции.
type Bus interface {
	Publish(ctx context.Context, e Event) error
}

// BusFunc адаптирует функцию к Bus.
type BusFunc func(ctx context.Context, e Event) error

func (f BusFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop отбрасывает события.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi рассылает событие во все шины и собирает ошибки.
type Multi []Bus

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type counted struct {
	name    string
	bus     Bus
	metrics *metrics.Metrics
}

// Counted подписывает ошибки шины ее именем и считает успешные публикации.
func Counted(name string, bus Bus, m *metrics.Metrics) Bus {
	return &counted{name: name, bus: bus, metrics: m}
}

func (c *counted) Publish(ctx context.Context, e Event) error {
	if err := c.bus.Publish(ctx, e); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	c.metrics.EventPublished(c.name)
	return nil
}
