package shazam

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Clean1ines/shazamio/pkg/matching"
)

// Genre - идентификатор жанрового чарта Shazam.
type Genre int

const (
	GenrePop              Genre = 1
	GenreAfroBeats        Genre = 2
	GenreHouse            Genre = 5
	GenreCountry          Genre = 6
	GenreElectronic       Genre = 7
	GenreSingerSongwriter Genre = 10
	GenreLatin            Genre = 12
	GenreRnBSoul          Genre = 15
	GenreFilmTVStage      Genre = 16
	GenreDance            Genre = 17
	GenreHipHopRap        Genre = 18
	GenreWorldwide        Genre = 19
	GenreAlternative      Genre = 20
	GenreRock             Genre = 21
	GenreReggaeDanceHall  Genre = 24
	GenreFrenchPop        Genre = 50
	GenreKPop             Genre = 51
)

var genreByName = map[string]Genre{
	"pop":               GenrePop,
	"afro_beats":        GenreAfroBeats,
	"house":             GenreHouse,
	"country":           GenreCountry,
	"electronic":        GenreElectronic,
	"singer_songwriter": GenreSingerSongwriter,
	"latin":             GenreLatin,
	"rnb_soul":          GenreRnBSoul,
	"film_tv_stage":     GenreFilmTVStage,
	"dance":             GenreDance,
	"hip_hop_rap":       GenreHipHopRap,
	"worldwide":         GenreWorldwide,
	"alternative":       GenreAlternative,
	"rock":              GenreRock,
	"reggae_dance_hall": GenreReggaeDanceHall,
	"french_pop":        GenreFrenchPop,
	"k_pop":             GenreKPop,
}

// UnknownGenreError возвращается для значений вне перечня.
type UnknownGenreError struct {
	Value      string
	Suggestion string
}

func (e *UnknownGenreError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown genre %q (did you mean %q?)", e.Value, e.Suggestion)
	}
	return fmt.Sprintf("unknown genre %q", e.Value)
}

// GenreNames возвращает известные имена жанров в алфавитном порядке.
func GenreNames() []string {
	names := make([]string, 0, len(genreByName))
	for name := range genreByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g Genre) String() string {
	for name, id := range genreByName {
		if id == g {
			return name
		}
	}
	return strconv.Itoa(int(g))
}

// ParseGenre принимает имя жанра в любом регистре ("Hip-Hop/Rap", "rock") или его числовой id.
func ParseGenre(s string) (Genre, error) {
	key := normalizeGenre(s)
	if g, ok := genreByName[key]; ok {
		return g, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		for _, g := range genreByName {
			if int(g) == n {
				return g, nil
			}
		}
	}
	return 0, &UnknownGenreError{Value: s, Suggestion: matching.Closest(key, GenreNames(), 50)}
}

func normalizeGenre(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", "/", "_", "&", "_", " ", "_", "'", "").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
