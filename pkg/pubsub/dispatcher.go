package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

// PubSubClient инкапсулирует клиента, топик событий и подписку очереди вызовов.
type PubSubClient struct {
	Client       *pubsub.Client
	Topic        *pubsub.Topic
	Subscription *pubsub.Subscription
	Logger       *logging.Logger
}

// Caller выполняет сервис по имени; его реализует integration.Registry.
type Caller interface {
	Call(ctx context.Context, name string, params operations.Params) (json.RawMessage, error)
}

// CallMessage - вызов сервиса из очереди.
type CallMessage struct {
	Service string            `json:"service"`
	Data    operations.Params `json:"data"`
}

// InitPubSubClient инициализирует клиента Pub/Sub для проекта.
// Пустые имена топика или подписки отключают соответствующую сторону.
func InitPubSubClient(ctx context.Context, projectID, eventTopic, callSubscription string, logger *logging.Logger) (*PubSubClient, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p := &PubSubClient{Client: client, Logger: logger}
	if p.Logger == nil {
		p.Logger = logging.Default
	}
	if eventTopic != "" {
		p.Topic = client.Topic(eventTopic)
	}
	if callSubscription != "" {
		p.Subscription = client.Subscription(callSubscription)
	}
	return p, nil
}

// Publish публикует событие в топик с атрибутом event_type.
func (p *PubSubClient) Publish(ctx context.Context, e events.Event) error {
	if p.Topic == nil {
		return errors.New("pubsub: event topic is not configured")
	}
	data, err := e.Payload()
	if err != nil {
		return err
	}
	result := p.Topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": e.Type},
	})
	_, err = result.Get(ctx)
	return err
}

// StartWorkerPool получает вызовы, обрабатывая не больше workerCount одновременно.
// Блокирует до отмены ctx.
func (p *PubSubClient) StartWorkerPool(ctx context.Context, caller Caller, workerCount int) error {
	if p.Subscription == nil {
		return errors.New("pubsub: call subscription is not configured")
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	p.Subscription.ReceiveSettings.MaxOutstandingMessages = workerCount
	p.Subscription.ReceiveSettings.NumGoroutines = 1
	err := p.Subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if p.handle(ctx, caller, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil {
		p.Logger.Errorf("Ошибка получения вызовов из Pub/Sub: %v", err)
	}
	return err
}

// handle возвращает false только для сообщений, которые нельзя разобрать.
func (p *PubSubClient) handle(ctx context.Context, caller Caller, data []byte) bool {
	call, err := decodeCall(data)
	if err != nil {
		p.Logger.Errorf("Ошибка разбора вызова: %v", err)
		return false
	}
	p.Logger.Infof("Начало обработки вызова %s", call.Service)
	if _, err := caller.Call(ctx, call.Service, call.Data); err != nil {
		p.Logger.Errorf("Вызов %s завершился ошибкой: %v", call.Service, err)
		return true
	}
	p.Logger.Infof("Вызов %s обработан", call.Service)
	return true
}

func decodeCall(data []byte) (CallMessage, error) {
	var call CallMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&call); err != nil {
		return call, err
	}
	if call.Service == "" {
		return call, fmt.Errorf("service is required")
	}
	if call.Data == nil {
		call.Data = operations.Params{}
	}
	return call, nil
}

func (p *PubSubClient) Close() error { return p.Client.Close() }
