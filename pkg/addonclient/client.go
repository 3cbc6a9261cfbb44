package addonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Clean1ines/shazamio/pkg/api/client"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

const (
	DefaultURL     = "http://localhost:8099/api"
	DefaultTimeout = 60 * time.Second
)

// Error - ответ дополнения со статусом не 2xx.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("addon: status %d: %s", e.Status, e.Detail)
}

// Client вызывает операции через HTTP-дополнение.
type Client struct {
	BaseURL string
	Timeout time.Duration
	// Audio, если задан, читает audio_path на стороне клиента;
	// без него путь передается дополнению как есть.
	Audio operations.AudioLoader

	http *client.Client
}

func New(baseURL string, timeout time.Duration, loader operations.AudioLoader) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		Audio:   loader,
		http:    client.New(64, client.WithTimeout(timeout), client.WithUserAgent("shazamio-bridge")),
	}
}

// Invoke отправляет один POST <BaseURL>/<операция> с JSON-телом запроса.
func (c *Client) Invoke(ctx context.Context, name string, req operations.Request) (json.RawMessage, error) {
	if _, ok := operations.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", operations.ErrUnknownOperation, name)
	}
	if c.Audio != nil {
		if err := operations.Prepare(ctx, req, c.Audio); err != nil {
			return nil, err
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	url := c.BaseURL + "/" + name
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, respBody, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("addon %s: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Detail: detail(respBody)}
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("addon %s: invalid JSON response", name)
	}
	return json.RawMessage(respBody), nil
}

func detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(payload.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}
