package template

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolvePassThrough(t *testing.T) {
	r := NewResolver(nil)
	for _, v := range []any{nil, "en-US", 42, []any{"{{ x }}"}} {
		got, err := r.Resolve(context.Background(), v)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if s, ok := v.(string); ok && got != s {
			t.Errorf("Строка изменена: %v", got)
		}
	}
}

func TestResolveStates(t *testing.T) {
	states := NewMapStates()
	states.Set("input_text.lang", State{Value: "de-DE", Attributes: map[string]any{"country": "DE"}})
	r := NewResolver(states)

	got, err := r.Resolve(context.Background(), "{{ states('input_text.lang') }}")
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if got != "de-DE" {
		t.Errorf("Ожидалось de-DE, получено %v", got)
	}

	got, _ = r.Resolve(context.Background(), "{{ state_attr('input_text.lang', 'country') }}")
	if got != "DE" {
		t.Errorf("Ожидалось DE, получено %v", got)
	}

	got, _ = r.Resolve(context.Background(), "{{ states('sensor.missing') }}")
	if got != UnknownState {
		t.Errorf("Ожидалось unknown, получено %v", got)
	}
}

func TestResolveReturnsString(t *testing.T) {
	r := NewResolver(nil)
	got, err := r.Resolve(context.Background(), "{{ 40 + 2 }}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("Ожидалась строка 42, получено %#v", got)
	}
}

func TestResolveNow(t *testing.T) {
	r := NewResolver(nil)
	r.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	got, err := r.Resolve(context.Background(), `{{ now()|date:"2006" }}`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2024" {
		t.Errorf("Ожидалось 2024, получено %v", got)
	}
}

type failingStates struct{}

func (failingStates) State(ctx context.Context, id string) (string, bool, error) {
	return "", false, errors.New("redis down")
}
func (failingStates) Attribute(ctx context.Context, id, attr string) (any, bool, error) {
	return nil, false, nil
}

func TestResolveParamsPropagatesErrors(t *testing.T) {
	r := NewResolver(failingStates{})
	_, err := r.ResolveParams(context.Background(), map[string]any{"language": "{{ states('x') }}"})
	if err == nil {
		t.Errorf("Ошибка чтения состояния должна возвращаться")
	}
	if _, err := NewResolver(nil).ResolveParams(context.Background(), map[string]any{"q": "{{ unclosed"}); err == nil {
		t.Errorf("Синтаксическая ошибка шаблона должна возвращаться")
	}

	out, err := NewResolver(nil).ResolveParams(context.Background(), map[string]any{"track_id": 5, "query": "plain"})
	if err != nil || out["track_id"] != 5 || out["query"] != "plain" {
		t.Errorf("Неверный результат %v, %v", out, err)
	}
}

func TestResolveDoesNotEscape(t *testing.T) {
	states := NewMapStates()
	states.Set("input_text.query", State{Value: "Simon & Garfunkel <live> 'Sound'"})
	states.Set("input_select.genre", State{Value: "R&B/Soul"})
	r := NewResolver(states)

	got, err := r.Resolve(context.Background(), "{{ states('input_text.query') }}")
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if got != "Simon & Garfunkel <live> 'Sound'" {
		t.Errorf("Значение экранировано: %q", got)
	}

	got, _ = r.Resolve(context.Background(), "{{ states('input_select.genre') }}")
	if got != "R&B/Soul" {
		t.Errorf("Ожидалось R&B/Soul, получено %q", got)
	}
}
