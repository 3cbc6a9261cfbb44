// Package shazam - HTTP-клиент публичного веб-API Shazam: распознавание, каталог и чарты.
// Ответы возвращаются как есть, без разбора.
package shazam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Clean1ines/shazamio/pkg/api/client"
)

// ErrNotFound - объект не найден на стороне Shazam.
var ErrNotFound = errors.New("shazam: not found")

// HTTPError описывает неуспешный ответ upstream.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("shazam: %s returned %d: %s", e.URL, e.Status, body)
}

func (e *HTTPError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Endpoints - базовые адреса сервисов Shazam.
type Endpoints struct {
	Web string
	AMP string
	CDN string
}

var DefaultEndpoints = Endpoints{
	Web: "https://www.shazam.com",
	AMP: "https://amp.shazam.com",
	CDN: "https://cdn.shazam.com",
}

var defaultTransport = client.New(client.DefaultConcurrencyLimit, client.WithUserAgent(UserAgent))

// UserAgent отправляется в запросах к веб-API.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Client настроен на язык и страну эндпоинта. Создается заново на каждый вызов.
type Client struct {
	Language        string
	EndpointCountry string

	http      *client.Client
	endpoints Endpoints
	signer    Signer
	timezone  string
}

type Option func(*Client)

func WithTransport(c *client.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithEndpoints(e Endpoints) Option {
	return func(cl *Client) {
		cl.endpoints = e
	}
}

func WithSigner(s Signer) Option {
	return func(cl *Client) {
		cl.signer = s
	}
}

// WithTimezone задает часовой пояс, передаваемый при распознавании.
func WithTimezone(tz string) Option {
	return func(cl *Client) {
		if tz != "" {
			cl.timezone = tz
		}
	}
}

// New создает клиента. Пустые language/endpointCountry заменяются на en-US/GB.
func New(language, endpointCountry string, opts ...Option) *Client {
	if language == "" {
		language = "en-US"
	}
	if endpointCountry == "" {
		endpointCountry = "GB"
	}
	c := &Client{
		Language:        language,
		EndpointCountry: endpointCountry,
		http:            defaultTransport,
		endpoints:       DefaultEndpoints,
		timezone:        "Europe/London",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", c.Language)
	h.Set("X-Shazam-Platform", "IPHONE")
	h.Set("X-Shazam-AppVersion", "14.1.0")
	return h
}

func (c *Client) get(ctx context.Context, rawURL string) (json.RawMessage, error) {
	resp, body, err := c.http.Get(ctx, rawURL, c.header())
	if err != nil {
		return nil, fmt.Errorf("shazam: GET %s: %w", rawURL, err)
	}
	return checkResponse(resp, rawURL, body)
}

func checkResponse(resp *http.Response, rawURL string, body []byte) (json.RawMessage, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, URL: rawURL, Body: string(body)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("shazam: %s returned invalid JSON", rawURL)
	}
	return json.RawMessage(body), nil
}

func (c *Client) lang() string    { return url.PathEscape(c.Language) }
func (c *Client) country() string { return url.PathEscape(c.EndpointCountry) }

// TrackAbout возвращает подробности трека.
func (c *Client) TrackAbout(ctx context.Context, trackID int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/discovery/v5/%s/%s/web/-/track/%d?shazamapiversion=v3&video=v3",
		c.endpoints.Web, c.lang(), c.country(), trackID)
	return c.get(ctx, u)
}

// ArtistAbout возвращает карточку артиста; query может быть nil.
func (c *Client) ArtistAbout(ctx context.Context, artistID int, query *ArtistQuery) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/services/amapi/v1/catalog/%s/artists/%d", c.endpoints.Web, c.country(), artistID)
	if q := query.values(); len(q) > 0 {
		u += "?" + q.Encode()
	}
	return c.get(ctx, u)
}

func (c *Client) search(ctx context.Context, kind, query string, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("types", kind)
	u := fmt.Sprintf("%s/services/search/v4/%s/%s/web/search?%s",
		c.endpoints.Web, c.lang(), c.country(), q.Encode())
	return c.get(ctx, u)
}

func (c *Client) SearchArtist(ctx context.Context, query string, limit, offset int) (json.RawMessage, error) {
	return c.search(ctx, "artists", query, limit, offset)
}

func (c *Client) SearchTrack(ctx context.Context, query string, limit, offset int) (json.RawMessage, error) {
	return c.search(ctx, "songs", query, limit, offset)
}

// RelatedTracks возвращает похожие треки.
func (c *Client) RelatedTracks(ctx context.Context, trackID, limit, offset int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/shazam/v3/%s/%s/web/-/tracks/track-similarities-id-%d?startFrom=%d&pageSize=%d&connected=&channel=",
		c.endpoints.CDN, c.lang(), c.country(), trackID, offset, limit)
	return c.get(ctx, u)
}

func (c *Client) ArtistAlbums(ctx context.Context, artistID, limit, offset int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/services/amapi/v1/catalog/%s/artists/%d/albums?limit=%d&offset=%d",
		c.endpoints.Web, c.country(), artistID, limit, offset)
	return c.get(ctx, u)
}

func (c *Client) SearchAlbum(ctx context.Context, albumID int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/services/amapi/v1/catalog/%s/albums/%d", c.endpoints.Web, c.country(), albumID)
	return c.get(ctx, u)
}

// ListeningCounter возвращает число распознаваний трека.
func (c *Client) ListeningCounter(ctx context.Context, trackID int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/services/count/v2/web/track/%d", c.endpoints.Web, trackID)
	return c.get(ctx, u)
}

func (c *Client) ListeningCounterMany(ctx context.Context, trackIDs []int) (json.RawMessage, error) {
	if len(trackIDs) == 0 {
		return json.RawMessage("[]"), nil
	}
	q := url.Values{}
	for _, id := range trackIDs {
		q.Add("id", strconv.Itoa(id))
	}
	u := fmt.Sprintf("%s/services/count/v2/web/track?%s", c.endpoints.Web, q.Encode())
	return c.get(ctx, u)
}
