package mqtt

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/operations"
	"github.com/Clean1ines/shazamio/pkg/template"
)

const publishTimeout = 10 * time.Second

// Options - параметры подключения к брокеру.
type Options struct {
	Broker   string
	Username string
	Password string
	Prefix   string
	ClientID string
}

// Caller выполняет сервис по имени.
type Caller interface {
	Call(ctx context.Context, name string, params operations.Params) (json.RawMessage, error)
}

// StateSink принимает состояния сущностей из retained-топиков.
type StateSink interface {
	Set(entityID string, s template.State)
	Delete(entityID string)
}

// Bridge связывает операции с топиками хоста:
// <prefix>/service/<операция>/call - вызовы, <prefix>/event/<событие> - события,
// <prefix>/state/<entity_id> - состояния для шаблонов.
type Bridge struct {
	client paho.Client
	prefix string
	logger *logging.Logger

	mu     sync.Mutex
	ctx    context.Context
	caller Caller
	states StateSink
}

func generateClientID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "shazamio_" + hex.EncodeToString(b)
}

// Connect подключается к брокеру; подписки восстанавливаются после переподключения.
func Connect(o Options, logger *logging.Logger) (*Bridge, error) {
	if o.Broker == "" {
		return nil, errors.New("mqtt: broker is not configured")
	}
	if logger == nil {
		logger = logging.Default
	}
	b := &Bridge{prefix: strings.TrimRight(o.Prefix, "/"), logger: logger, ctx: context.Background()}
	if b.prefix == "" {
		b.prefix = "ha_shazamio"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(o.Broker)
	if o.ClientID == "" {
		o.ClientID = generateClientID()
	}
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Infof("MQTT: подключено к %s", o.Broker)
		b.subscribe()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warnf("MQTT: соединение потеряно: %v", err)
	})

	b.client = paho.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return b, nil
}

func (b *Bridge) CallTopic(operation string) string {
	return b.prefix + "/service/" + operation + "/call"
}

func (b *Bridge) EventTopic(eventType string) string {
	return b.prefix + "/event/" + eventType
}

func (b *Bridge) stateTopicPrefix() string { return b.prefix + "/state/" }

// Serve обрабатывает вызовы и состояния до отмены ctx.
func (b *Bridge) Serve(ctx context.Context, caller Caller, states StateSink) error {
	b.mu.Lock()
	b.ctx, b.caller, b.states = ctx, caller, states
	b.mu.Unlock()
	b.subscribe()
	<-ctx.Done()
	return nil
}

func (b *Bridge) subscribe() {
	b.mu.Lock()
	caller, states := b.caller, b.states
	b.mu.Unlock()
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	if caller != nil {
		topic := b.prefix + "/service/+/call"
		if token := b.client.Subscribe(topic, 1, b.onCall); token.Wait() && token.Error() != nil {
			b.logger.Errorf("MQTT: подписка %s: %v", topic, token.Error())
		}
	}
	if states != nil {
		topic := b.stateTopicPrefix() + "#"
		if token := b.client.Subscribe(topic, 0, b.onState); token.Wait() && token.Error() != nil {
			b.logger.Errorf("MQTT: подписка %s: %v", topic, token.Error())
		}
	}
}

func (b *Bridge) onCall(_ paho.Client, msg paho.Message) {
	b.mu.Lock()
	ctx, caller := b.ctx, b.caller
	b.mu.Unlock()
	// Обработчик paho не должен блокировать клиент на время вызова.
	go func() {
		replyTo, reply := b.handleCall(ctx, caller, msg.Topic(), msg.Payload())
		if replyTo == "" {
			return
		}
		if err := b.publish(replyTo, reply); err != nil {
			b.logger.Errorf("MQTT: ответ в %s: %v", replyTo, err)
		}
	}()
}

func (b *Bridge) onState(_ paho.Client, msg paho.Message) {
	b.mu.Lock()
	states := b.states
	b.mu.Unlock()
	b.handleState(states, msg.Topic(), msg.Payload())
}

// handleCall выполняет вызов и возвращает топик и тело ответа, если он запрошен.
func (b *Bridge) handleCall(ctx context.Context, caller Caller, topic string, payload []byte) (string, []byte) {
	operation, ok := b.operationFromTopic(topic)
	if !ok {
		b.logger.Warnf("MQTT: неожиданный топик %s", topic)
		return "", nil
	}
	params := operations.Params{}
	if len(bytes.TrimSpace(payload)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			b.logger.Errorf("MQTT: %s: неверное тело вызова: %v", operation, err)
			return "", nil
		}
	}
	replyTo, _ := params["response_topic"].(string)
	delete(params, "response_topic")

	result, err := caller.Call(ctx, operation, params)
	if replyTo == "" {
		return "", nil
	}
	if err != nil {
		reply, _ := json.Marshal(map[string]string{"error": err.Error()})
		return replyTo, reply
	}
	return replyTo, result
}

func (b *Bridge) operationFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/service/")
	if !ok {
		return "", false
	}
	operation, ok := strings.CutSuffix(rest, "/call")
	if !ok || operation == "" || strings.Contains(operation, "/") {
		return "", false
	}
	return operation, true
}

// handleState принимает строку состояния или {"state": ..., "attributes": {...}}.
// Пустое retained-сообщение удаляет сущность.
func (b *Bridge) handleState(states StateSink, topic string, payload []byte) {
	entityID, ok := strings.CutPrefix(topic, b.stateTopicPrefix())
	if !ok || entityID == "" || states == nil {
		return
	}
	entityID = strings.ReplaceAll(entityID, "/", ".")
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		states.Delete(entityID)
		return
	}
	var full struct {
		State      *string        `json:"state"`
		Attributes map[string]any `json:"attributes"`
	}
	if payload[0] == '{' && json.Unmarshal(payload, &full) == nil && full.State != nil {
		states.Set(entityID, template.State{Value: *full.State, Attributes: full.Attributes})
		return
	}
	states.Set(entityID, template.State{Value: string(payload)})
}

func (b *Bridge) publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: publish to %s timed out", topic)
	}
	return token.Error()
}

// Publish отправляет событие в <prefix>/event/<тип>.
func (b *Bridge) Publish(ctx context.Context, e events.Event) error {
	payload, err := e.Payload()
	if err != nil {
		return err
	}
	eventType := e.Type
	if eventType == "" {
		eventType = events.ResponseEvent
	}
	return b.publish(b.EventTopic(eventType), payload)
}

// Close отключается от брокера.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
