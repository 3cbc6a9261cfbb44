package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Clean1ines/shazamio/pkg/shazam"
)

// Имена операций.
const (
	OpRecognize             = "recognize"
	OpArtistAbout           = "artist_about"
	OpTrackAbout            = "track_about"
	OpSearchArtist          = "search_artist"
	OpSearchTrack           = "search_track"
	OpRelatedTracks         = "related_tracks"
	OpTopWorldTracks        = "top_world_tracks"
	OpTopCountryTracks      = "top_country_tracks"
	OpTopCityTracks         = "top_city_tracks"
	OpTopWorldGenreTracks   = "top_world_genre_tracks"
	OpTopCountryGenreTracks = "top_country_genre_tracks"
	OpArtistAlbums          = "artist_albums"
	OpSearchAlbum           = "search_album"
	OpListeningCounter      = "listening_counter"
	OpListeningCounterMany  = "listening_counter_many"
)

// Catalog - методы клиента распознавания, которые вызывают операции.
// *shazam.Client удовлетворяет ему напрямую.
type Catalog interface {
	Recognize(ctx context.Context, audio []byte) (json.RawMessage, error)
	ArtistAbout(ctx context.Context, artistID int, query *shazam.ArtistQuery) (json.RawMessage, error)
	TrackAbout(ctx context.Context, trackID int) (json.RawMessage, error)
	SearchArtist(ctx context.Context, query string, limit, offset int) (json.RawMessage, error)
	SearchTrack(ctx context.Context, query string, limit, offset int) (json.RawMessage, error)
	RelatedTracks(ctx context.Context, trackID, limit, offset int) (json.RawMessage, error)
	TopWorldTracks(ctx context.Context, limit, offset int) (json.RawMessage, error)
	TopCountryTracks(ctx context.Context, countryCode string, limit, offset int) (json.RawMessage, error)
	TopCityTracks(ctx context.Context, countryCode, cityName string, limit, offset int) (json.RawMessage, error)
	TopWorldGenreTracks(ctx context.Context, genre shazam.Genre, limit, offset int) (json.RawMessage, error)
	TopCountryGenreTracks(ctx context.Context, countryCode string, genre shazam.Genre, limit, offset int) (json.RawMessage, error)
	ArtistAlbums(ctx context.Context, artistID, limit, offset int) (json.RawMessage, error)
	SearchAlbum(ctx context.Context, albumID int) (json.RawMessage, error)
	ListeningCounter(ctx context.Context, trackID int) (json.RawMessage, error)
	ListeningCounterMany(ctx context.Context, trackIDs []int) (json.RawMessage, error)
}

var _ Catalog = (*shazam.Client)(nil)

// Descriptor связывает имя операции, форму запроса и вызов клиента.
type Descriptor struct {
	Name string
	// New возвращает запрос со значениями по умолчанию.
	New  func() Request
	Call func(ctx context.Context, c Catalog, req Request) (json.RawMessage, error)
}

func describe[R any, P interface {
	*R
	Request
}](name string, newReq func() P, call func(context.Context, Catalog, P) (json.RawMessage, error)) Descriptor {
	return Descriptor{
		Name: name,
		New:  func() Request { return newReq() },
		Call: func(ctx context.Context, c Catalog, req Request) (json.RawMessage, error) {
			typed, ok := req.(P)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected request type %T", name, req)
			}
			return call(ctx, c, typed)
		},
	}
}

func page(limit int) Page { return Page{Limit: limit} }

// Table - все операции. Не изменяется после инициализации пакета.
var Table = []Descriptor{
	describe[RecognizeRequest](OpRecognize,
		func() *RecognizeRequest { return &RecognizeRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *RecognizeRequest) (json.RawMessage, error) {
			b, err := r.Audio()
			if err != nil {
				return nil, err
			}
			return c.Recognize(ctx, b)
		}),
	describe[ArtistAboutRequest](OpArtistAbout,
		func() *ArtistAboutRequest { return &ArtistAboutRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *ArtistAboutRequest) (json.RawMessage, error) {
			return c.ArtistAbout(ctx, r.ArtistID, r.query)
		}),
	describe[TrackRequest](OpTrackAbout,
		func() *TrackRequest { return &TrackRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TrackRequest) (json.RawMessage, error) {
			return c.TrackAbout(ctx, r.TrackID)
		}),
	describe[SearchRequest](OpSearchArtist,
		func() *SearchRequest { return &SearchRequest{Page: page(10), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *SearchRequest) (json.RawMessage, error) {
			return c.SearchArtist(ctx, r.Query, r.Limit, r.Offset)
		}),
	describe[SearchRequest](OpSearchTrack,
		func() *SearchRequest { return &SearchRequest{Page: page(10), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *SearchRequest) (json.RawMessage, error) {
			return c.SearchTrack(ctx, r.Query, r.Limit, r.Offset)
		}),
	describe[RelatedTracksRequest](OpRelatedTracks,
		func() *RelatedTracksRequest { return &RelatedTracksRequest{Page: page(20), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *RelatedTracksRequest) (json.RawMessage, error) {
			return c.RelatedTracks(ctx, r.TrackID, r.Limit, r.Offset)
		}),
	describe[TopWorldRequest](OpTopWorldTracks,
		func() *TopWorldRequest { return &TopWorldRequest{Page: page(200), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TopWorldRequest) (json.RawMessage, error) {
			return c.TopWorldTracks(ctx, r.Limit, r.Offset)
		}),
	describe[TopCountryRequest](OpTopCountryTracks,
		func() *TopCountryRequest { return &TopCountryRequest{Page: page(200), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TopCountryRequest) (json.RawMessage, error) {
			return c.TopCountryTracks(ctx, r.CountryCode, r.Limit, r.Offset)
		}),
	describe[TopCityRequest](OpTopCityTracks,
		func() *TopCityRequest { return &TopCityRequest{Page: page(200), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TopCityRequest) (json.RawMessage, error) {
			return c.TopCityTracks(ctx, r.CountryCode, r.CityName, r.Limit, r.Offset)
		}),
	describe[TopWorldGenreRequest](OpTopWorldGenreTracks,
		func() *TopWorldGenreRequest { return &TopWorldGenreRequest{Page: page(100), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TopWorldGenreRequest) (json.RawMessage, error) {
			return c.TopWorldGenreTracks(ctx, r.genre, r.Limit, r.Offset)
		}),
	describe[TopCountryGenreRequest](OpTopCountryGenreTracks,
		func() *TopCountryGenreRequest { return &TopCountryGenreRequest{Page: page(200), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TopCountryGenreRequest) (json.RawMessage, error) {
			return c.TopCountryGenreTracks(ctx, r.CountryCode, r.genre, r.Limit, r.Offset)
		}),
	describe[ArtistAlbumsRequest](OpArtistAlbums,
		func() *ArtistAlbumsRequest { return &ArtistAlbumsRequest{Page: page(10), Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *ArtistAlbumsRequest) (json.RawMessage, error) {
			return c.ArtistAlbums(ctx, r.ArtistID, r.Limit, r.Offset)
		}),
	describe[AlbumRequest](OpSearchAlbum,
		func() *AlbumRequest { return &AlbumRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *AlbumRequest) (json.RawMessage, error) {
			return c.SearchAlbum(ctx, r.AlbumID)
		}),
	describe[TrackRequest](OpListeningCounter,
		func() *TrackRequest { return &TrackRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TrackRequest) (json.RawMessage, error) {
			return c.ListeningCounter(ctx, r.TrackID)
		}),
	describe[TrackIDsRequest](OpListeningCounterMany,
		func() *TrackIDsRequest { return &TrackIDsRequest{Locale: defaultLocale()} },
		func(ctx context.Context, c Catalog, r *TrackIDsRequest) (json.RawMessage, error) {
			return c.ListeningCounterMany(ctx, r.TrackIDs)
		}),
}

var byName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(Table))
	for _, d := range Table {
		if _, dup := m[d.Name]; dup {
			panic("operations: duplicate descriptor " + d.Name)
		}
		m[d.Name] = d
	}
	return m
}()

// Lookup ищет операцию по имени.
func Lookup(name string) (Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}

// Names возвращает имена всех операций в алфавитном порядке.
func Names() []string {
	names := make([]string, 0, len(Table))
	for _, d := range Table {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Decode строит типизированный запрос операции из параметров.
func Decode(name string, p Params) (Request, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	req := d.New()
	if err := req.Decode(p); err != nil {
		return nil, err
	}
	return req, nil
}

// Dispatch проверяет запрос и выполняет ровно один вызов клиента.
func Dispatch(ctx context.Context, d Descriptor, c Catalog, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return d.Call(ctx, c, req)
}
