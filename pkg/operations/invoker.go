package operations

import (
	"context"
	"encoding/json"
	"fmt"
)

// Invoker выполняет операцию: внутри процесса или через HTTP-дополнение.
type Invoker interface {
	Invoke(ctx context.Context, name string, req Request) (json.RawMessage, error)
}

// CatalogFactory строит клиента для языка и страны запроса.
type CatalogFactory func(language, country string) Catalog

// Local создает нового клиента на каждый вызов и вызывает его в процессе.
type Local struct {
	NewCatalog CatalogFactory
	// Audio читает audio_path; без него путь считается ошибкой ввода.
	Audio AudioLoader
}

func NewLocal(factory CatalogFactory, loader AudioLoader) *Local {
	return &Local{NewCatalog: factory, Audio: loader}
}

func (l *Local) Invoke(ctx context.Context, name string, req Request) (json.RawMessage, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	if err := Prepare(ctx, req, l.Audio); err != nil {
		return nil, err
	}
	return Dispatch(ctx, d, l.NewCatalog(req.Endpoint()), req)
}

// Prepare подгружает аудио для запросов, ссылающихся на файл.
func Prepare(ctx context.Context, req Request, loader AudioLoader) error {
	r, ok := req.(*RecognizeRequest)
	if !ok || r.AudioPath == "" {
		return nil
	}
	if loader == nil {
		return inputErr("audio_path", "audio loading is not configured")
	}
	return r.Load(ctx, loader)
}
