package telegram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NothingFound - ответ на пустой результат.
const NothingFound = "Ничего не найдено."

type songAttributes struct {
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	URL        string `json:"url"`
}

type songResource struct {
	Attributes songAttributes `json:"attributes"`
}

type resultShape struct {
	Track *struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		URL      string `json:"url"`
	} `json:"track"`
	Data    []songResource `json:"data"`
	Results struct {
		Songs struct {
			Data []songResource `json:"data"`
		} `json:"songs"`
	} `json:"results"`
}

// FormatResult превращает непрозрачный ответ в текст: распознанный трек или список песен.
func FormatResult(raw json.RawMessage) string {
	var r resultShape
	if err := json.Unmarshal(raw, &r); err != nil {
		return NothingFound
	}
	if r.Track != nil && r.Track.Title != "" {
		line := songLine(r.Track.Title, r.Track.Subtitle)
		if r.Track.URL != "" {
			line += "\n" + r.Track.URL
		}
		return line
	}
	songs := r.Data
	if len(songs) == 0 {
		songs = r.Results.Songs.Data
	}
	var lines []string
	for _, s := range songs {
		if s.Attributes.Name == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, songLine(s.Attributes.Name, s.Attributes.ArtistName)))
	}
	if len(lines) == 0 {
		return NothingFound
	}
	return strings.Join(lines, "\n")
}

func songLine(title, artist string) string {
	if artist == "" {
		return title
	}
	return title + " - " + artist
}
