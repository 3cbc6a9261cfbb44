package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Clean1ines/shazamio/pkg/audio"
	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/operations"
	"github.com/Clean1ines/shazamio/pkg/template"
)

// fakeInvoker запоминает запросы и отвечает track_id либо ошибкой.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []operations.Request
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, req operations.Request) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	switch r := req.(type) {
	case *operations.TrackRequest:
		return json.RawMessage(fmt.Sprintf(`{"key":"%d"}`, r.TrackID)), nil
	case *operations.RecognizeRequest:
		return json.RawMessage(fmt.Sprintf(`{"audio":%q}`, r.AudioData)), nil
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeInvoker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type env struct {
	reg     *Registry
	invoker *fakeInvoker
	hub     *events.Hub
	events  <-chan events.Event
	states  *template.MapStates
}

func newEnv(t *testing.T, failSilent bool) *env {
	t.Helper()
	e := &env{reg: NewRegistry(), invoker: &fakeInvoker{}, hub: events.NewHub(64), states: template.NewMapStates()}
	var cancel func()
	e.events, cancel = e.hub.Subscribe()
	t.Cleanup(cancel)
	Setup(e.reg, &Service{
		Invoker:    e.invoker,
		Resolver:   template.NewResolver(e.states),
		Audio:      audio.NewLoader(nil),
		Bus:        e.hub,
		FailSilent: failSilent,
	})
	return e
}

func (e *env) nextEvent(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	default:
		t.Fatalf("Событие не опубликовано")
		return events.Event{}
	}
}

func TestSetupRegistersEveryOperation(t *testing.T) {
	e := newEnv(t, true)
	if got := len(e.reg.Services()); got != len(operations.Table) {
		t.Errorf("Ожидалось %d сервисов, получено %d", len(operations.Table), got)
	}
	Setup(e.reg, &Service{Invoker: e.invoker})
	if got := len(e.reg.Services()); got != len(operations.Table) {
		t.Errorf("Повторная регистрация изменила число сервисов: %d", got)
	}
}

func TestSuccessFiresEventAndReturnsResult(t *testing.T) {
	e := newEnv(t, true)
	got, err := e.reg.Call(context.Background(), operations.OpTrackAbout, operations.Params{"track_id": "42"})
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if string(got) != `{"key":"42"}` {
		t.Errorf("Неверный ответ: %s", got)
	}
	ev := e.nextEvent(t)
	if ev.Type != events.ResponseEvent || ev.Service != operations.OpTrackAbout || string(ev.Data) != `{"key":"42"}` {
		t.Errorf("Неверное событие: %+v", ev)
	}
}

func TestMissingAudioReturnsEmptyWithoutUpstream(t *testing.T) {
	e := newEnv(t, true)
	got, err := e.reg.Call(context.Background(), operations.OpRecognize, operations.Params{})
	if err != nil {
		t.Fatalf("В режиме fail-silent ошибка не возвращается: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("Ожидался {}, получено %s", got)
	}
	if e.invoker.count() != 0 {
		t.Errorf("Вызовов быть не должно, получено %d", e.invoker.count())
	}
	if ev := e.nextEvent(t); string(ev.Data) != "{}" {
		t.Errorf("Событие должно нести пустой результат: %s", ev.Data)
	}
}

func TestTemplateIsResolved(t *testing.T) {
	e := newEnv(t, true)
	e.states.Set("input_text.lang", template.State{Value: "de-DE"})
	_, err := e.reg.Call(context.Background(), operations.OpTrackAbout, operations.Params{
		"track_id":         1,
		"language":         "{{ states('input_text.lang') }}",
		"endpoint_country": "DE",
	})
	if err != nil {
		t.Fatal(err)
	}
	req := e.invoker.calls[0].(*operations.TrackRequest)
	if req.Language != "de-DE" || req.EndpointCountry != "DE" {
		t.Errorf("Ожидалось de-DE/DE, получено %s/%s", req.Language, req.EndpointCountry)
	}
}

func TestGenreValidation(t *testing.T) {
	e := newEnv(t, true)
	if _, err := e.reg.Call(context.Background(), operations.OpTopWorldGenreTracks, operations.Params{"genre": "rock"}); err != nil {
		t.Fatal(err)
	}
	e.reg.Call(context.Background(), operations.OpTopWorldGenreTracks, operations.Params{"genre": "not-a-genre"})
	if e.invoker.count() != 1 {
		t.Errorf("Неизвестный жанр не должен доходить до клиента: %d вызовов", e.invoker.count())
	}
}

func TestRecognizeAudioPath(t *testing.T) {
	e := newEnv(t, true)
	path := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := e.reg.Call(context.Background(), operations.OpRecognize, operations.Params{"audio_path": path})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"audio":"T2dnUw=="}` {
		t.Errorf("Ожидались данные в base64, получено %s", got)
	}
	req := e.invoker.calls[0].(*operations.RecognizeRequest)
	if req.AudioPath != "" {
		t.Errorf("Путь должен быть очищен: %q", req.AudioPath)
	}

	got, err = e.reg.Call(context.Background(), operations.OpRecognize, operations.Params{"audio_path": filepath.Join(t.TempDir(), "missing.ogg")})
	if err != nil || string(got) != "{}" {
		t.Errorf("Отсутствующий файл должен давать {}: %s, %v", got, err)
	}
	if e.invoker.count() != 1 {
		t.Errorf("Для отсутствующего файла вызова быть не должно")
	}
}

func TestRecognizeInlineBase64IsUnchanged(t *testing.T) {
	e := newEnv(t, true)
	got, _ := e.reg.Call(context.Background(), operations.OpRecognize, operations.Params{"audio_data": "UklGRg=="})
	if string(got) != `{"audio":"UklGRg=="}` {
		t.Errorf("base64 не должен изменяться: %s", got)
	}
	got, _ = e.reg.Call(context.Background(), operations.OpRecognize, operations.Params{"audio_data": []byte("RIFF")})
	if string(got) != `{"audio":"UklGRg=="}` {
		t.Errorf("Байты должны кодироваться в base64: %s", got)
	}
}

func TestFailSilentOffPropagates(t *testing.T) {
	e := newEnv(t, false)
	e.invoker.err = errors.New("upstream 503")
	if _, err := e.reg.Call(context.Background(), operations.OpTrackAbout, operations.Params{"track_id": 1}); err == nil {
		t.Fatalf("Ошибка должна возвращаться")
	}
	_, err := e.reg.Call(context.Background(), operations.OpTrackAbout, operations.Params{})
	if !errors.Is(err, operations.ErrInvalidInput) {
		t.Errorf("Ожидалась ErrInvalidInput, получено %v", err)
	}
	select {
	case ev := <-e.events:
		t.Errorf("Событие не должно публиковаться: %+v", ev)
	default:
	}
}

func TestUnknownService(t *testing.T) {
	e := newEnv(t, true)
	if _, err := e.reg.Call(context.Background(), "bogus", nil); !errors.Is(err, operations.ErrUnknownOperation) {
		t.Errorf("Ожидалась ErrUnknownOperation, получено %v", err)
	}
}

func TestConcurrentCallsArePaired(t *testing.T) {
	e := newEnv(t, true)
	var wg sync.WaitGroup
	for i := 1; i <= 40; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			got, err := e.reg.Call(context.Background(), operations.OpTrackAbout, operations.Params{"track_id": id})
			if err != nil {
				t.Error(err)
				return
			}
			if want := fmt.Sprintf(`{"key":"%d"}`, id); string(got) != want {
				t.Errorf("Ожидалось %s, получено %s", want, got)
			}
		}(i)
	}
	wg.Wait()
	if e.invoker.count() != 40 {
		t.Errorf("Ожидалось 40 вызовов, получено %d", e.invoker.count())
	}
}

func TestDefaultsFillMissingParams(t *testing.T) {
	e := newEnv(t, true)
	reg := NewRegistry()
	Setup(reg, &Service{Invoker: e.invoker, Defaults: operations.Params{"language": "ru-RU", "endpoint_country": "RU"}})
	params := operations.Params{"track_id": 1, "endpoint_country": "DE"}
	if _, err := reg.Call(context.Background(), operations.OpTrackAbout, params); err != nil {
		t.Fatal(err)
	}
	req := e.invoker.calls[0].(*operations.TrackRequest)
	if req.Language != "ru-RU" || req.EndpointCountry != "DE" {
		t.Errorf("Ожидалось ru-RU/DE, получено %s/%s", req.Language, req.EndpointCountry)
	}
	if _, ok := params["language"]; ok {
		t.Errorf("Параметры вызывающего не должны изменяться")
	}
}
