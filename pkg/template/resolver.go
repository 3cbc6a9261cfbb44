package template

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

// UnknownState возвращает states() для отсутствующей сущности.
const UnknownState = "unknown"

// Resolver подставляет значения в строковые параметры с шаблонами.
type Resolver struct {
	States StateReader
	Now    func() time.Time
}

func NewResolver(states StateReader) *Resolver {
	if states == nil {
		states = NewMapStates()
	}
	return &Resolver{States: states, Now: time.Now}
}

// IsTemplate сообщает, содержит ли строка шаблонные конструкции.
func IsTemplate(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

// Resolve возвращает отрисованную строку для шаблона и значение без изменений в остальных случаях.
func (r *Resolver) Resolve(ctx context.Context, value any) (any, error) {
	s, ok := value.(string)
	if !ok || !IsTemplate(s) {
		return value, nil
	}
	return r.Render(ctx, s)
}

// ResolveParams разрешает каждое поле верхнего уровня; вложенные значения не трогаются.
func (r *Resolver) ResolveParams(ctx context.Context, params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		resolved, err := r.Resolve(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// Render отрисовывает шаблон с функциями states(), state_attr() и now().
// Вывод не экранируется: значения уходят в параметры, а не в HTML.
func (r *Resolver) Render(ctx context.Context, text string) (string, error) {
	tpl, err := pongo2.FromString("{% autoescape off %}" + text + "{% endautoescape %}")
	if err != nil {
		return "", err
	}
	var lookupErr error
	now := r.Now
	if now == nil {
		now = time.Now
	}
	out, err := tpl.Execute(pongo2.Context{
		"states": func(entityID string) string {
			v, ok, err := r.States.State(ctx, entityID)
			if err != nil && lookupErr == nil {
				lookupErr = err
			}
			if !ok {
				return UnknownState
			}
			return v
		},
		"state_attr": func(entityID, attr string) any {
			v, _, err := r.States.Attribute(ctx, entityID, attr)
			if err != nil && lookupErr == nil {
				lookupErr = err
			}
			return v
		},
		"now": func() time.Time { return now() },
	})
	if err != nil {
		return "", err
	}
	if lookupErr != nil {
		return "", fmt.Errorf("state lookup: %w", lookupErr)
	}
	return out, nil
}
