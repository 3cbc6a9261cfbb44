package shazam

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const locationsJSON = `{
  "global": {"listid": "world-1", "genres": [{"id": "genre-global-chart-21", "name": "Rock", "listid": "world-rock"}]},
  "countries": [{
    "id": "GB", "name": "United Kingdom", "listid": "gb-1",
    "cities": [{"id": "2643743", "name": "London", "listid": "london-1"}],
    "genres": [{"id": "genre-country-chart-1", "listid": "gb-pop"}]
  }]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("en-US", "GB", WithEndpoints(Endpoints{Web: srv.URL, AMP: srv.URL, CDN: srv.URL}))
}

func TestTrackAboutPassesBodyThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discovery/v5/en-US/GB/web/-/track/42" {
			t.Errorf("Неверный путь: %s", r.URL.Path)
		}
		w.Write([]byte(`{"key":"42","title":"Song"}`))
	})
	got, err := c.TrackAbout(context.Background(), 42)
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if string(got) != `{"key":"42","title":"Song"}` {
		t.Errorf("Ответ изменен: %s", got)
	}
}

func TestNotFoundIsWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	_, err := c.SearchAlbum(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
		t.Errorf("Ожидалась HTTPError 404, получено %v", err)
	}
}

func TestListeningCounterManyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["id"]
		if strings.Join(ids, ",") != "123,456,789" {
			t.Errorf("Неверные id: %v", ids)
		}
		w.Write([]byte(`[{"id":"123","total":1}]`))
	})
	if _, err := c.ListeningCounterMany(context.Background(), []int{123, 456, 789}); err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
}

func TestChartsResolvePlaylists(t *testing.T) {
	var lastPlaylist string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/services/charts/locations" {
			w.Write([]byte(locationsJSON))
			return
		}
		lastPlaylist = r.URL.Path
		if r.URL.Query().Get("limit") != "5" || r.URL.Query().Get("offset") != "2" {
			t.Errorf("Неверные limit/offset: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":[]}`))
	})
	ctx := context.Background()

	cases := []struct {
		name string
		call func() (json.RawMessage, error)
		want string
	}{
		{"world", func() (json.RawMessage, error) { return c.TopWorldTracks(ctx, 5, 2) }, "world-1"},
		{"country", func() (json.RawMessage, error) { return c.TopCountryTracks(ctx, "gb", 5, 2) }, "gb-1"},
		{"city", func() (json.RawMessage, error) { return c.TopCityTracks(ctx, "GB", "london", 5, 2) }, "london-1"},
		{"world genre", func() (json.RawMessage, error) { return c.TopWorldGenreTracks(ctx, GenreRock, 5, 2) }, "world-rock"},
		{"country genre", func() (json.RawMessage, error) { return c.TopCountryGenreTracks(ctx, "GB", GenrePop, 5, 2) }, "gb-pop"},
	}
	for _, tc := range cases {
		if _, err := tc.call(); err != nil {
			t.Errorf("%s: неожиданная ошибка: %v", tc.name, err)
			continue
		}
		if want := "/services/amapi/v1/catalog/GB/playlists/" + tc.want + "/tracks"; lastPlaylist != want {
			t.Errorf("%s: ожидался %s, получено %s", tc.name, want, lastPlaylist)
		}
	}

	if _, err := c.TopCityTracks(ctx, "GB", "Paris", 5, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound для неизвестного города, получено %v", err)
	}
}

type fakeSigner struct{ got []byte }

func (s *fakeSigner) Sign(ctx context.Context, audio []byte) (Signature, error) {
	s.got = audio
	return Signature{URI: "data:audio/vnd.shazam.sig;base64,AAAA", SampleMs: 3000}, nil
}

func TestRecognizeSendsSignature(t *testing.T) {
	signer := &fakeSigner{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/discovery/v5/en-US/GB/android/-/tag/") {
			t.Errorf("Неверный запрос: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req recognizeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Тело не JSON: %v", err)
		}
		if req.Signature.URI != "data:audio/vnd.shazam.sig;base64,AAAA" || req.Signature.SampleMs != 3000 {
			t.Errorf("Неверная сигнатура: %+v", req.Signature)
		}
		if req.Timezone != "Europe/Berlin" {
			t.Errorf("Ожидался часовой пояс Europe/Berlin, получено %q", req.Timezone)
		}
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	c := New("en-US", "GB", WithEndpoints(Endpoints{AMP: srv.URL}), WithSigner(signer), WithTimezone("Europe/Berlin"))
	got, err := c.Recognize(context.Background(), []byte("RIFF"))
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if string(got) != `{"matches":[]}` || string(signer.got) != "RIFF" {
		t.Errorf("Неверный результат %s / %q", got, signer.got)
	}
}

func TestRecognizeWithoutSigner(t *testing.T) {
	c := New("", "")
	if _, err := c.Recognize(context.Background(), []byte("x")); !errors.Is(err, ErrNoSigner) {
		t.Errorf("Ожидалась ErrNoSigner, получено %v", err)
	}
	if c.Language != "en-US" || c.EndpointCountry != "GB" {
		t.Errorf("Не применены значения по умолчанию: %s/%s", c.Language, c.EndpointCountry)
	}
}

func TestExecSignerWithoutCommand(t *testing.T) {
	var s ExecSigner
	if _, err := s.Sign(context.Background(), []byte("x")); !errors.Is(err, ErrNoSigner) {
		t.Errorf("Ожидалась ErrNoSigner, получено %v", err)
	}
}

func TestArtistQuery(t *testing.T) {
	q, err := NewArtistQuery(nil, nil)
	if err != nil || q != nil {
		t.Errorf("Пустой запрос должен давать nil: %v %v", q, err)
	}
	if _, err := NewArtistQuery([]string{"bogus"}, nil); err == nil {
		t.Errorf("Ожидалась ошибка для неизвестного view")
	}
	q, err = NewArtistQuery([]string{"top-songs", "latest-release"}, []string{"artistBio"})
	if err != nil {
		t.Fatal(err)
	}
	if got := q.values().Encode(); got != "extend=artistBio&views=top-songs%2Clatest-release" {
		t.Errorf("Неверная строка запроса: %s", got)
	}
}
