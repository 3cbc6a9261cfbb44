package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clean1ines/shazamio/pkg/addon"
	"github.com/Clean1ines/shazamio/pkg/addonclient"
	"github.com/Clean1ines/shazamio/pkg/api/client"
	"github.com/Clean1ines/shazamio/pkg/audio"
	"github.com/Clean1ines/shazamio/pkg/config"
	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/integration"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/metrics"
	"github.com/Clean1ines/shazamio/pkg/mqtt"
	"github.com/Clean1ines/shazamio/pkg/operations"
	"github.com/Clean1ines/shazamio/pkg/pubsub"
	"github.com/Clean1ines/shazamio/pkg/shazam"
	"github.com/Clean1ines/shazamio/pkg/storage"
	"github.com/Clean1ines/shazamio/pkg/telegram"
	"github.com/Clean1ines/shazamio/pkg/template"
)

// app держит общие зависимости команд.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	audio   *audio.Loader
	redis   *storage.Redis
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	var objects audio.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err := audio.NewMinioStore(cfg.MinIO.Endpoint, cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, cfg.MinIO.UseSSL)
		if err != nil {
			return nil, err
		}
		objects = store
	}
	a.audio = audio.NewLoader(objects)

	if cfg.Redis.Address != "" {
		r, err := storage.NewRedis(ctx, cfg.Redis.Address, cfg.Redis.StatesKey, cfg.Redis.Channel)
		if err != nil {
			return nil, err
		}
		a.redis = r
		logger.Infof("Подключено к Redis %s", cfg.Redis.Address)
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warnf("Ошибка закрытия Redis: %v", err)
		}
	}
}

// catalogFactory создает нового клиента Shazam на каждый вызов поверх общего транспорта.
func (a *app) catalogFactory() operations.CatalogFactory {
	transport := client.New(a.cfg.Shazam.Concurrency,
		client.WithRetries(a.cfg.Shazam.Retries, time.Second),
		client.WithUserAgent(shazam.UserAgent))
	opts := []shazam.Option{
		shazam.WithTransport(transport),
		shazam.WithTimezone(a.cfg.Shazam.Timezone),
	}
	if len(a.cfg.Shazam.SignerCommand) > 0 {
		opts = append(opts, shazam.WithSigner(&shazam.ExecSigner{Command: a.cfg.Shazam.SignerCommand}))
	}
	return func(language, country string) operations.Catalog {
		return shazam.New(language, country, opts...)
	}
}

func (a *app) local() *operations.Local {
	return operations.NewLocal(a.catalogFactory(), a.audio)
}

// invoker выбирает форму выполнения: в процессе или через HTTP-дополнение.
func (a *app) invoker() operations.Invoker {
	if a.cfg.Integration.Mode == "addon" {
		a.logger.Infof("Вызовы направляются в дополнение %s", a.cfg.Addon.URL)
		return addonclient.New(a.cfg.Addon.URL, a.cfg.Addon.Timeout, nil)
	}
	return a.local()
}

func (a *app) limiter() addon.RateLimiter {
	if a.redis == nil {
		return nil
	}
	return a.redis
}

func runAddon(ctx context.Context, a *app) error {
	srv := &addon.Server{
		Invoker:    a.local(),
		Audio:      a.audio,
		Hub:        events.NewHub(64),
		Metrics:    a.metrics,
		Logger:     a.logger,
		Limiter:    a.limiter(),
		RateLimit:  a.cfg.Addon.RateLimit,
		RateWindow: a.cfg.Addon.RateWindow,
	}
	return srv.Run(ctx, a.cfg.Addon.Listen)
}

// service собирает сервис интеграции поверх выбранных шин и источника состояний.
func (a *app) service(states template.StateReader, bus events.Bus) *integration.Service {
	return &integration.Service{
		Invoker:    a.invoker(),
		Resolver:   template.NewResolver(states),
		Audio:      a.audio,
		Bus:        bus,
		Logger:     a.logger,
		Metrics:    a.metrics,
		FailSilent: a.cfg.Integration.FailSilent,
		EventType:  a.cfg.Integration.EventType,
		Defaults: operations.Params{
			"language":         a.cfg.Language,
			"endpoint_country": a.cfg.EndpointCountry,
		},
	}
}

func runBridge(ctx context.Context, a *app) error {
	cfg := a.cfg
	states := template.NewMapStates()
	var reader template.StateReader = states
	var buses events.Multi
	if a.redis != nil {
		reader = a.redis
		buses = append(buses, events.Counted("redis", a.redis, a.metrics))
	}

	var ps *pubsub.PubSubClient
	if cfg.PubSub.ProjectID != "" && (cfg.PubSub.EventTopic != "" || cfg.PubSub.CallSubscription != "") {
		var err error
		ps, err = pubsub.InitPubSubClient(ctx, cfg.PubSub.ProjectID, cfg.PubSub.EventTopic, cfg.PubSub.CallSubscription, a.logger)
		if err != nil {
			return fmt.Errorf("ошибка инициализации Pub/Sub: %w", err)
		}
		defer ps.Close()
		if ps.Topic != nil {
			buses = append(buses, events.Counted("pubsub", ps, a.metrics))
		}
	}

	var bridge *mqtt.Bridge
	if cfg.MQTT.Broker != "" {
		var err error
		bridge, err = mqtt.Connect(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.Prefix,
		}, a.logger)
		if err != nil {
			return err
		}
		defer bridge.Close()
		buses = append(buses, events.Counted("mqtt", bridge, a.metrics))
	}

	var bus events.Bus = events.Nop{}
	if len(buses) > 0 {
		bus = buses
	}
	reg := integration.NewRegistry()
	integration.Setup(reg, a.service(reader, bus))

	g, gctx := errgroup.WithContext(ctx)
	frontends := 0
	if bridge != nil {
		frontends++
		var sink mqtt.StateSink = states
		if a.redis != nil {
			sink = &stateSink{ctx: gctx, store: a.redis, logger: a.logger}
		}
		g.Go(func() error { return bridge.Serve(gctx, reg, sink) })
	}
	if ps != nil && ps.Subscription != nil {
		frontends++
		g.Go(func() error { return ps.StartWorkerPool(gctx, reg, cfg.PubSub.Workers) })
	}
	if cfg.Telegram.Token != "" {
		api, err := telegram.Connect(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("ошибка инициализации Telegram: %w", err)
		}
		bot := telegram.NewBot(api, reg, a.logger)
		if a.redis != nil {
			bot.Limiter = a.redis
		}
		bot.RateLimit, bot.RateWindow = cfg.Telegram.RateLimit, cfg.Telegram.RateWindow
		frontends++
		g.Go(func() error { return bot.Start(gctx, api) })
	}
	if frontends == 0 {
		return errors.New("не настроен ни один вход: укажите mqtt.broker, pubsub.call_subscription или telegram.token")
	}
	if cfg.Metrics.Listen != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Listen, a.metrics) })
	}
	a.logger.Infof("Мост запущен, сервисов: %d", len(reg.Services()))
	return g.Wait()
}

// stateStore - хранилище состояний, которое пополняется из MQTT.
type stateStore interface {
	SetState(ctx context.Context, entityID, value string, attrs map[string]any) error
	DeleteState(ctx context.Context, entityID string) error
}

// stateSink записывает состояния из MQTT в общее хранилище (Redis).
type stateSink struct {
	ctx    context.Context
	store  stateStore
	logger *logging.Logger
}

func (s *stateSink) Set(entityID string, st template.State) {
	if err := s.store.SetState(s.ctx, entityID, st.Value, st.Attributes); err != nil {
		s.logger.Errorf("Ошибка записи состояния %s: %v", entityID, err)
	}
}

func (s *stateSink) Delete(entityID string) {
	if err := s.store.DeleteState(s.ctx, entityID); err != nil {
		s.logger.Errorf("Ошибка удаления состояния %s: %v", entityID, err)
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runCall выполняет один вызов через реестр и печатает результат.
func runCall(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("не указана операция, см. команду services")
	}
	params, err := parseCallArgs(args[1:])
	if err != nil {
		return err
	}
	var states template.StateReader = template.NewMapStates()
	var bus events.Bus = events.Nop{}
	if a.redis != nil {
		states, bus = a.redis, a.redis
	}
	reg := integration.NewRegistry()
	integration.Setup(reg, a.service(states, bus))
	result, err := reg.Call(ctx, args[0], params)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(result))
	return err
}

// parseCallArgs разбирает ключ=значение; значение, являющееся JSON, декодируется.
func parseCallArgs(args []string) (operations.Params, error) {
	params := make(operations.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("аргумент %q должен иметь вид ключ=значение", arg)
		}
		params[key] = decodeValue(value)
	}
	return params, nil
}

func decodeValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() || v == nil {
		return s
	}
	return v
}

func serviceNames() []string {
	return operations.Names()
}
