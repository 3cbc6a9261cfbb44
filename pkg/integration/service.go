package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/metrics"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

// EmptyResult возвращается вместо ошибки в режиме fail-silent.
var EmptyResult = json.RawMessage(`{}`)

// ParamResolver подставляет значения шаблонов в параметры.
type ParamResolver interface {
	ResolveParams(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Service - обработчики операций в форме прямого вызова.
type Service struct {
	Invoker  operations.Invoker
	Resolver ParamResolver
	Audio    operations.AudioLoader
	Bus      events.Bus
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	// FailSilent: ошибка записывается в лог, вызывающий получает {}.
	FailSilent bool
	EventType  string
	// Defaults дополняют параметры, не переданные вызывающим (language, endpoint_country).
	Defaults operations.Params
}

// Setup регистрирует все операции. Порядок и повторный вызов не важны.
func Setup(reg *Registry, svc *Service) {
	for _, d := range operations.Table {
		name := d.Name
		reg.Register(name, func(ctx context.Context, p operations.Params) (json.RawMessage, error) {
			return svc.Handle(ctx, name, p)
		})
	}
}

func (s *Service) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.Default
	}
	return s.Logger
}

// Handle выполняет операцию: шаблоны, разбор, аудио, вызов, событие.
func (s *Service) Handle(ctx context.Context, name string, params operations.Params) (json.RawMessage, error) {
	start := time.Now()
	result, err := s.run(ctx, name, params)
	s.Metrics.ObserveOperation(name, outcome(err), time.Since(start))
	if err != nil {
		s.logger().Errorf("%s: %v", name, err)
		if !s.FailSilent {
			return nil, err
		}
		result = EmptyResult
	}
	s.emit(ctx, name, result)
	return result, nil
}

func (s *Service) run(ctx context.Context, name string, params operations.Params) (json.RawMessage, error) {
	params = s.withDefaults(params)
	if s.Resolver != nil {
		resolved, err := s.Resolver.ResolveParams(ctx, params)
		if err != nil {
			return nil, err
		}
		params = resolved
	}
	req, err := operations.Decode(name, params)
	if err != nil {
		return nil, err
	}
	if err := operations.Prepare(ctx, req, s.Audio); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// Отключение вызывающего не прерывает уже начатый вызов.
	return s.Invoker.Invoke(context.WithoutCancel(ctx), name, req)
}

func (s *Service) withDefaults(params operations.Params) operations.Params {
	if len(s.Defaults) == 0 {
		return params
	}
	merged := make(operations.Params, len(params)+len(s.Defaults))
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (s *Service) emit(ctx context.Context, name string, result json.RawMessage) {
	if s.Bus == nil {
		return
	}
	eventType := s.EventType
	if eventType == "" {
		eventType = events.ResponseEvent
	}
	e := events.Event{Type: eventType, Service: name, Data: result}
	if err := s.Bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.logger().Warnf("событие %s для %s не доставлено: %v", eventType, name, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, operations.ErrInvalidInput):
		return metrics.OutcomeInput
	default:
		return metrics.OutcomeFailure
	}
}
