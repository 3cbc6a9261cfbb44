package addon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Clean1ines/shazamio/pkg/events"
	"github.com/Clean1ines/shazamio/pkg/health"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/metrics"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

// RateLimiter ограничивает число запросов ключа в окне.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Server - HTTP-дополнение: GET / для проверки живости и POST /api/<операция> для каждой операции.
type Server struct {
	Invoker operations.Invoker
	Audio   operations.AudioLoader
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Logger  *logging.Logger

	Limiter    RateLimiter
	RateLimit  int
	RateWindow time.Duration
}

func (s *Server) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.Default
	}
	return s.Logger
}

// Router собирает gin-движок со всеми маршрутами.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.LoggerWithWriter(s.logger().Writer().Writer()), gin.Recovery())

	router.GET("/", gin.WrapF(health.Handler))
	if s.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	api := router.Group("/api")
	if s.Hub != nil {
		api.GET("/events", s.streamEvents)
	}
	ops := api.Group("")
	if s.Limiter != nil && s.RateLimit > 0 {
		ops.Use(s.rateLimit)
	}
	for _, d := range operations.Table {
		ops.POST("/"+d.Name, s.handle(d))
	}
	return router
}

func fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func (s *Server) handle(d operations.Descriptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		result, status, err := s.invoke(c, d)
		outcome := metrics.OutcomeOK
		switch {
		case status == http.StatusUnprocessableEntity:
			outcome = metrics.OutcomeInput
		case err != nil:
			outcome = metrics.OutcomeFailure
		}
		s.Metrics.ObserveOperation(d.Name, outcome, time.Since(start))
		if err != nil {
			s.logger().Errorf("Ошибка %s: %v", d.Name, err)
			fail(c, status, err)
			return
		}
		if s.Hub != nil {
			s.Hub.Publish(c.Request.Context(), events.Event{Type: events.ResponseEvent, Service: d.Name, Data: result})
		}
		c.Data(http.StatusOK, "application/json", result)
	}
}

func (s *Server) invoke(c *gin.Context, d operations.Descriptor) (json.RawMessage, int, error) {
	params, err := bindParams(c)
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	req := d.New()
	if err := req.Decode(params); err != nil {
		return nil, statusFor(err), err
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	ctx := c.Request.Context()
	if s.Audio != nil {
		if err := operations.Prepare(ctx, req, s.Audio); err != nil {
			return nil, statusFor(err), err
		}
	}
	result, err := s.Invoker.Invoke(ctx, d.Name, req)
	if err != nil {
		return nil, statusFor(err), err
	}
	return result, http.StatusOK, nil
}

// bindParams читает тело как слабо типизированные параметры: "123" и 123 равноценны.
// Пустое тело допустимо.
func bindParams(c *gin.Context) (operations.Params, error) {
	params := operations.Params{}
	if c.Request.Body == nil {
		return params, nil
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return nil, &operations.InputError{Msg: "invalid JSON body: " + err.Error(), Err: err}
	}
	return params, nil
}

func statusFor(err error) int {
	if operations.IsInputError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) rateLimit(c *gin.Context) {
	allowed, err := s.Limiter.Allow(c.Request.Context(), "addon:"+c.ClientIP(), s.RateLimit, s.RateWindow)
	if err != nil {
		s.logger().Warnf("Ограничение частоты недоступно: %v", err)
		c.Next()
		return
	}
	if !allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "too many requests"})
		return
	}
	c.Next()
}

// Run обслуживает запросы до отмены ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger().Infof("Дополнение слушает %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
