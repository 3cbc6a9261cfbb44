package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

type fakeCaller struct {
	name   string
	params operations.Params
	err    error
}

func (f *fakeCaller) Call(ctx context.Context, name string, params operations.Params) (json.RawMessage, error) {
	f.name, f.params = name, params
	return json.RawMessage(`{}`), f.err
}

func TestDecodeCall(t *testing.T) {
	call, err := decodeCall([]byte(`{"service":"track_about","data":{"track_id":42}}`))
	if err != nil {
		t.Fatal(err)
	}
	if call.Service != "track_about" || call.Data["track_id"] != json.Number("42") {
		t.Errorf("Неверный вызов: %+v", call)
	}
	if _, err := decodeCall([]byte(`{"data":{}}`)); err == nil {
		t.Errorf("Вызов без service должен отклоняться")
	}
	call, err = decodeCall([]byte(`{"service":"top_world_tracks"}`))
	if err != nil || call.Data == nil {
		t.Errorf("Пустые данные должны давать пустые параметры: %+v %v", call, err)
	}
}

func TestHandleAcks(t *testing.T) {
	p := &PubSubClient{Logger: logging.NewStd("test")}
	caller := &fakeCaller{}
	if !p.handle(context.Background(), caller, []byte(`{"service":"search_track","data":{"query":"queen"}}`)) {
		t.Errorf("Корректный вызов должен подтверждаться")
	}
	if caller.name != "search_track" || caller.params["query"] != "queen" {
		t.Errorf("Неверная передача вызова: %s %v", caller.name, caller.params)
	}

	caller.err = errors.New("upstream")
	if !p.handle(context.Background(), caller, []byte(`{"service":"search_track","data":{}}`)) {
		t.Errorf("Ошибка операции не должна приводить к повторной доставке")
	}
	if p.handle(context.Background(), caller, []byte(`not json`)) {
		t.Errorf("Неразбираемое сообщение должно отклоняться")
	}
}
