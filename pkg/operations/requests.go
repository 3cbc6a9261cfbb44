package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Clean1ines/shazamio/pkg/audio"
	"github.com/Clean1ines/shazamio/pkg/shazam"
)

const (
	DefaultLanguage        = "en-US"
	DefaultEndpointCountry = "GB"
)

// Request - типизированный запрос одной операции.
type Request interface {
	// Endpoint возвращает язык и страну, с которыми строится клиент.
	Endpoint() (language, country string)
	// Decode заполняет запрос из слабо типизированных параметров.
	Decode(p Params) error
	// Validate проверяет обязательные поля до сетевого вызова.
	Validate() error
}

// Locale - общие для всех запросов поля.
type Locale struct {
	Language        string `json:"language"`
	EndpointCountry string `json:"endpoint_country"`
}

func defaultLocale() Locale {
	return Locale{Language: DefaultLanguage, EndpointCountry: DefaultEndpointCountry}
}

func (l Locale) Endpoint() (string, string) {
	lang, country := l.Language, l.EndpointCountry
	if lang == "" {
		lang = DefaultLanguage
	}
	if country == "" {
		country = DefaultEndpointCountry
	}
	return lang, country
}

func (l *Locale) decode(p Params) (err error) {
	if l.Language, err = p.String("language", l.Language); err != nil {
		return err
	}
	l.EndpointCountry, err = p.String("endpoint_country", l.EndpointCountry)
	return err
}

// Page - постраничная выборка.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (pg *Page) decode(p Params) (err error) {
	if pg.Limit, err = p.Int("limit", pg.Limit); err != nil {
		return err
	}
	pg.Offset, err = p.Int("offset", pg.Offset)
	return err
}

func (pg Page) validate() error {
	if pg.Limit < 0 {
		return inputErr("limit", "must not be negative")
	}
	if pg.Offset < 0 {
		return inputErr("offset", "must not be negative")
	}
	return nil
}

func requirePositive(field string, v int) error {
	if v <= 0 {
		return inputErr(field, "is required")
	}
	return nil
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return inputErr(field, "is required")
	}
	return nil
}

// AudioLoader читает аудио по пути (файл или s3://).
type AudioLoader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// RecognizeRequest - аудио в base64 (или байтами внутри процесса) либо путь к файлу.
type RecognizeRequest struct {
	AudioData string `json:"audio_data,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
	Locale

	raw []byte
}

func (r *RecognizeRequest) Decode(p Params) error {
	if err := r.Locale.decode(p); err != nil {
		return err
	}
	switch v := p["audio_data"].(type) {
	case nil:
	case []byte:
		r.SetAudio(v)
	case string:
		r.AudioData = strings.TrimSpace(v)
	default:
		return inputErr("audio_data", "expected base64 string or bytes, got %T", v)
	}
	var err error
	r.AudioPath, err = p.String("audio_path", "")
	return err
}

func (r *RecognizeRequest) Validate() error {
	if len(r.raw) == 0 && r.AudioData == "" && r.AudioPath == "" {
		return &InputError{Field: "audio_data", Msg: "audio_data or audio_path is required", Err: audio.ErrNoAudio}
	}
	return nil
}

// SetAudio задает сырые байты; audio_data получает их base64-представление.
func (r *RecognizeRequest) SetAudio(b []byte) {
	r.raw = b
	r.AudioData = audio.EncodeBase64(b)
}

// Load читает audio_path и заменяет его содержимым файла.
func (r *RecognizeRequest) Load(ctx context.Context, loader AudioLoader) error {
	if r.AudioPath == "" {
		return nil
	}
	b, err := loader.Load(ctx, r.AudioPath)
	if err != nil {
		return err
	}
	r.SetAudio(b)
	r.AudioPath = ""
	return nil
}

// Audio возвращает байты для распознавания.
func (r *RecognizeRequest) Audio() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	if r.AudioData == "" {
		return nil, &InputError{Field: "audio_data", Msg: "no audio loaded", Err: audio.ErrNoAudio}
	}
	b, err := audio.DecodeBase64(r.AudioData)
	if err != nil {
		return nil, &InputError{Field: "audio_data", Msg: err.Error(), Err: err}
	}
	return b, nil
}

type ArtistAboutRequest struct {
	ArtistID int      `json:"artist_id" binding:"required"`
	Views    []string `json:"views,omitempty"`
	Extend   []string `json:"extend,omitempty"`
	Locale

	query *shazam.ArtistQuery
}

func (r *ArtistAboutRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if r.ArtistID, err = p.RequiredInt("artist_id"); err != nil {
		return err
	}
	if r.Views, err = p.Strings("views"); err != nil {
		return err
	}
	r.Extend, err = p.Strings("extend")
	return err
}

func (r *ArtistAboutRequest) Validate() error {
	if err := requirePositive("artist_id", r.ArtistID); err != nil {
		return err
	}
	q, err := shazam.NewArtistQuery(r.Views, r.Extend)
	if err != nil {
		return &InputError{Field: "views", Msg: err.Error(), Err: err}
	}
	r.query = q
	return nil
}

// TrackRequest обслуживает track_about и listening_counter.
type TrackRequest struct {
	TrackID int `json:"track_id" binding:"required"`
	Locale
}

func (r *TrackRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	r.TrackID, err = p.RequiredInt("track_id")
	return err
}

func (r *TrackRequest) Validate() error { return requirePositive("track_id", r.TrackID) }

// SearchRequest обслуживает search_artist и search_track.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Page
	Locale
}

func (r *SearchRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	r.Query, err = p.RequiredString("query")
	return err
}

func (r *SearchRequest) Validate() error {
	if err := requireText("query", r.Query); err != nil {
		return err
	}
	return r.Page.validate()
}

type RelatedTracksRequest struct {
	TrackID int `json:"track_id" binding:"required"`
	Page
	Locale
}

func (r *RelatedTracksRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	r.TrackID, err = p.RequiredInt("track_id")
	return err
}

func (r *RelatedTracksRequest) Validate() error {
	if err := requirePositive("track_id", r.TrackID); err != nil {
		return err
	}
	return r.Page.validate()
}

type TopWorldRequest struct {
	Page
	Locale
}

func (r *TopWorldRequest) Decode(p Params) error {
	if err := r.Locale.decode(p); err != nil {
		return err
	}
	return r.Page.decode(p)
}

func (r *TopWorldRequest) Validate() error { return r.Page.validate() }

type TopCountryRequest struct {
	CountryCode string `json:"country_code" binding:"required"`
	Page
	Locale
}

func (r *TopCountryRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	r.CountryCode, err = p.RequiredString("country_code")
	return err
}

func (r *TopCountryRequest) Validate() error {
	if err := requireText("country_code", r.CountryCode); err != nil {
		return err
	}
	return r.Page.validate()
}

type TopCityRequest struct {
	CountryCode string `json:"country_code" binding:"required"`
	CityName    string `json:"city_name" binding:"required"`
	Page
	Locale
}

func (r *TopCityRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	if r.CountryCode, err = p.RequiredString("country_code"); err != nil {
		return err
	}
	r.CityName, err = p.RequiredString("city_name")
	return err
}

func (r *TopCityRequest) Validate() error {
	if err := requireText("country_code", r.CountryCode); err != nil {
		return err
	}
	if err := requireText("city_name", r.CityName); err != nil {
		return err
	}
	return r.Page.validate()
}

func parseGenre(s string) (shazam.Genre, error) {
	if err := requireText("genre", s); err != nil {
		return 0, err
	}
	g, err := shazam.ParseGenre(s)
	if err != nil {
		return 0, &InputError{Field: "genre", Msg: err.Error(), Err: err}
	}
	return g, nil
}

type TopWorldGenreRequest struct {
	Genre string `json:"genre" binding:"required"`
	Page
	Locale

	genre shazam.Genre
}

func (r *TopWorldGenreRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	r.Genre, err = p.RequiredString("genre")
	return err
}

func (r *TopWorldGenreRequest) Validate() (err error) {
	if r.genre, err = parseGenre(r.Genre); err != nil {
		return err
	}
	return r.Page.validate()
}

type TopCountryGenreRequest struct {
	CountryCode string `json:"country_code" binding:"required"`
	Genre       string `json:"genre" binding:"required"`
	Page
	Locale

	genre shazam.Genre
}

func (r *TopCountryGenreRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	if r.CountryCode, err = p.RequiredString("country_code"); err != nil {
		return err
	}
	r.Genre, err = p.RequiredString("genre")
	return err
}

func (r *TopCountryGenreRequest) Validate() (err error) {
	if err = requireText("country_code", r.CountryCode); err != nil {
		return err
	}
	if r.genre, err = parseGenre(r.Genre); err != nil {
		return err
	}
	return r.Page.validate()
}

type ArtistAlbumsRequest struct {
	ArtistID int `json:"artist_id" binding:"required"`
	Page
	Locale
}

func (r *ArtistAlbumsRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	if err = r.Page.decode(p); err != nil {
		return err
	}
	r.ArtistID, err = p.RequiredInt("artist_id")
	return err
}

func (r *ArtistAlbumsRequest) Validate() error {
	if err := requirePositive("artist_id", r.ArtistID); err != nil {
		return err
	}
	return r.Page.validate()
}

type AlbumRequest struct {
	AlbumID int `json:"album_id" binding:"required"`
	Locale
}

func (r *AlbumRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	r.AlbumID, err = p.RequiredInt("album_id")
	return err
}

func (r *AlbumRequest) Validate() error { return requirePositive("album_id", r.AlbumID) }

// IDList принимает в JSON список чисел, список строк или строку через запятую.
type IDList []int

func (l *IDList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	ids, err := Params{"track_ids": v}.Ints("track_ids")
	if err != nil {
		return err
	}
	*l = ids
	return nil
}

type TrackIDsRequest struct {
	TrackIDs IDList `json:"track_ids" binding:"required"`
	Locale
}

func (r *TrackIDsRequest) Decode(p Params) (err error) {
	if err = r.Locale.decode(p); err != nil {
		return err
	}
	r.TrackIDs, err = p.Ints("track_ids")
	return err
}

func (r *TrackIDsRequest) Validate() error {
	if len(r.TrackIDs) == 0 {
		return inputErr("track_ids", "is required")
	}
	for _, id := range r.TrackIDs {
		if id <= 0 {
			return inputErr("track_ids", "invalid id %d", id)
		}
	}
	return nil
}

// IsInputError сообщает, относится ли ошибка к входным данным.
func IsInputError(err error) bool { return errors.Is(err, ErrInvalidInput) }

