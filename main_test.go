package main

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/operations"
	"github.com/Clean1ines/shazamio/pkg/template"
)

func TestParseCallArgs(t *testing.T) {
	params, err := parseCallArgs([]string{
		"track_id=12345",
		"query=daft punk",
		"track_ids=[1,2]",
		"genre=hip_hop_rap",
		`title="quoted"`,
		"template={{ states('sensor.x') }}",
		"empty=",
	})
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	want := operations.Params{
		"track_id":  json.Number("12345"),
		"query":     "daft punk",
		"track_ids": []any{json.Number("1"), json.Number("2")},
		"genre":     "hip_hop_rap",
		"title":     "quoted",
		"template":  "{{ states('sensor.x') }}",
		"empty":     "",
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("Ожидалось %#v, получено %#v", want, params)
	}
}

func TestParseCallArgsRejectsBareWords(t *testing.T) {
	for _, arg := range []string{"track_id", "=5"} {
		if _, err := parseCallArgs([]string{arg}); err == nil {
			t.Errorf("Ожидалась ошибка для %q", arg)
		}
	}
}

func TestServiceNamesCoverTable(t *testing.T) {
	if got := len(serviceNames()); got != len(operations.Table) {
		t.Errorf("Ожидалось %d сервисов, получено %d", len(operations.Table), got)
	}
}

type memoryStore struct {
	values  map[string]string
	attrs   map[string]map[string]any
	failing bool
}

func (m *memoryStore) SetState(ctx context.Context, entityID, value string, attrs map[string]any) error {
	if m.failing {
		return errors.New("redis down")
	}
	m.values[entityID] = value
	m.attrs[entityID] = attrs
	return nil
}

func (m *memoryStore) DeleteState(ctx context.Context, entityID string) error {
	if m.failing {
		return errors.New("redis down")
	}
	delete(m.values, entityID)
	delete(m.attrs, entityID)
	return nil
}

func TestStateSinkWritesToStore(t *testing.T) {
	store := &memoryStore{values: map[string]string{}, attrs: map[string]map[string]any{}}
	sink := &stateSink{ctx: context.Background(), store: store, logger: logging.NewStd("test")}

	sink.Set("input_text.lang", template.State{Value: "de-DE", Attributes: map[string]any{"country": "DE"}})
	if store.values["input_text.lang"] != "de-DE" || store.attrs["input_text.lang"]["country"] != "DE" {
		t.Errorf("Состояние не записано: %v %v", store.values, store.attrs)
	}
	sink.Delete("input_text.lang")
	if _, ok := store.values["input_text.lang"]; ok {
		t.Errorf("Состояние не удалено")
	}

	store.failing = true
	sink.Set("sensor.x", template.State{Value: "1"})
}

func TestLoggerName(t *testing.T) {
	if got := loggerName("ha-shazam", "bridge"); got != "ha-shazam-bridge" {
		t.Errorf("Ожидалось ha-shazam-bridge, получено %s", got)
	}
	if got := loggerName("", "addon"); got != "addon" {
		t.Errorf("Ожидалось addon, получено %s", got)
	}
}
