package shazam

import (
	"fmt"
	"net/url"
	"strings"
)

// ArtistViews - допустимые значения views для ArtistAbout.
var ArtistViews = []string{
	"full-albums", "featured-albums", "latest-release", "top-music-videos",
	"similar-artists", "top-songs", "playlists", "appears-on-albums",
	"featured-playlists", "compilation-albums", "live-albums", "singles",
	"more-to-see", "more-to-hear", "music-videos", "radio-shows", "videos",
}

// ArtistExtensions - допустимые значения extend.
var ArtistExtensions = []string{
	"artistBio", "bornOrFormed", "editorialArtwork", "editorialVideo",
	"isGroup", "origin", "hero",
}

// ArtistQuery уточняет состав ответа ArtistAbout.
type ArtistQuery struct {
	Views  []string
	Extend []string
}

// NewArtistQuery проверяет значения и возвращает nil, если уточнять нечего.
func NewArtistQuery(views, extend []string) (*ArtistQuery, error) {
	if len(views) == 0 && len(extend) == 0 {
		return nil, nil
	}
	for _, v := range views {
		if !contains(ArtistViews, v) {
			return nil, fmt.Errorf("unknown artist view %q", v)
		}
	}
	for _, e := range extend {
		if !contains(ArtistExtensions, e) {
			return nil, fmt.Errorf("unknown artist extension %q", e)
		}
	}
	return &ArtistQuery{Views: views, Extend: extend}, nil
}

func (q *ArtistQuery) values() url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	if len(q.Views) > 0 {
		v.Set("views", strings.Join(q.Views, ","))
	}
	if len(q.Extend) > 0 {
		v.Set("extend", strings.Join(q.Extend, ","))
	}
	return v
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
