package shazam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Документ /services/charts/locations: плейлисты мирового, страновых, городских и жанровых чартов.
type chartLocations struct {
	Global struct {
		ListID string       `json:"listid"`
		Genres []chartEntry `json:"genres"`
	} `json:"global"`
	Countries []struct {
		ID     string       `json:"id"`
		Name   string       `json:"name"`
		ListID string       `json:"listid"`
		Cities []chartEntry `json:"cities"`
		Genres []chartEntry `json:"genres"`
	} `json:"countries"`
}

type chartEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ListID string `json:"listid"`
}

func (c *Client) locations(ctx context.Context) (*chartLocations, error) {
	raw, err := c.get(ctx, c.endpoints.Web+"/services/charts/locations")
	if err != nil {
		return nil, err
	}
	var loc chartLocations
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("shazam: chart locations: %w", err)
	}
	return &loc, nil
}

func (c *Client) playlistTracks(ctx context.Context, listID string, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("l", c.Language)
	q.Set("relate[songs]", "artists,music-videos")
	u := fmt.Sprintf("%s/services/amapi/v1/catalog/%s/playlists/%s/tracks?%s",
		c.endpoints.Web, c.country(), url.PathEscape(listID), q.Encode())
	return c.get(ctx, u)
}

func genreEntry(entries []chartEntry, genre Genre) (chartEntry, bool) {
	suffix := "-" + strconv.Itoa(int(genre))
	for _, e := range entries {
		if strings.HasSuffix(e.ID, suffix) {
			return e, true
		}
	}
	return chartEntry{}, false
}

func (l *chartLocations) country(code string) (int, bool) {
	for i, c := range l.Countries {
		if strings.EqualFold(c.ID, code) {
			return i, true
		}
	}
	return 0, false
}

// TopWorldTracks возвращает мировой чарт.
func (c *Client) TopWorldTracks(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	loc, err := c.locations(ctx)
	if err != nil {
		return nil, err
	}
	if loc.Global.ListID == "" {
		return nil, fmt.Errorf("world chart: %w", ErrNotFound)
	}
	return c.playlistTracks(ctx, loc.Global.ListID, limit, offset)
}

func (c *Client) TopCountryTracks(ctx context.Context, countryCode string, limit, offset int) (json.RawMessage, error) {
	loc, err := c.locations(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := loc.country(countryCode)
	if !ok || loc.Countries[i].ListID == "" {
		return nil, fmt.Errorf("country chart %q: %w", countryCode, ErrNotFound)
	}
	return c.playlistTracks(ctx, loc.Countries[i].ListID, limit, offset)
}

// TopCityTracks ищет город по имени без учета регистра.
func (c *Client) TopCityTracks(ctx context.Context, countryCode, cityName string, limit, offset int) (json.RawMessage, error) {
	loc, err := c.locations(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := loc.country(countryCode)
	if !ok {
		return nil, fmt.Errorf("country chart %q: %w", countryCode, ErrNotFound)
	}
	for _, city := range loc.Countries[i].Cities {
		if strings.EqualFold(city.Name, cityName) {
			return c.playlistTracks(ctx, city.ListID, limit, offset)
		}
	}
	return nil, fmt.Errorf("city chart %q/%q: %w", countryCode, cityName, ErrNotFound)
}

func (c *Client) TopWorldGenreTracks(ctx context.Context, genre Genre, limit, offset int) (json.RawMessage, error) {
	loc, err := c.locations(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := genreEntry(loc.Global.Genres, genre)
	if !ok {
		return nil, fmt.Errorf("world genre chart %s: %w", genre, ErrNotFound)
	}
	return c.playlistTracks(ctx, e.ListID, limit, offset)
}

func (c *Client) TopCountryGenreTracks(ctx context.Context, countryCode string, genre Genre, limit, offset int) (json.RawMessage, error) {
	loc, err := c.locations(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := loc.country(countryCode)
	if !ok {
		return nil, fmt.Errorf("country chart %q: %w", countryCode, ErrNotFound)
	}
	e, ok := genreEntry(loc.Countries[i].Genres, genre)
	if !ok {
		return nil, fmt.Errorf("country genre chart %q/%s: %w", countryCode, genre, ErrNotFound)
	}
	return c.playlistTracks(ctx, e.ListID, limit, offset)
}
