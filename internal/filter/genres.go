package filter

import (
	"slices"
	"strings"
)

// genre is one entry of the fixed catalog vocabulary. A zero ID means the
// catalog has no equivalent genre for that media type.
type genre struct {
	name  string
	movie int
	tv    int
}

var genres = []genre{
	{name: "action", movie: 28, tv: 10759},
	{name: "adventure", movie: 12, tv: 10759},
	{name: "animation", movie: 16, tv: 16},
	{name: "comedy", movie: 35, tv: 35},
	{name: "crime", movie: 80, tv: 80},
	{name: "documentary", movie: 99, tv: 99},
	{name: "drama", movie: 18, tv: 18},
	{name: "family", movie: 10751, tv: 10751},
	{name: "fantasy", movie: 14, tv: 10765},
	{name: "history", movie: 36},
	{name: "horror", movie: 27},
	{name: "music", movie: 10402},
	{name: "mystery", movie: 9648, tv: 9648},
	{name: "romance", movie: 10749},
	{name: "science fiction", movie: 878, tv: 10765},
	{name: "tv movie", movie: 10770},
	{name: "thriller", movie: 53},
	{name: "war", movie: 10752, tv: 10768},
	{name: "western", movie: 37, tv: 37},
	{name: "kids", movie: 10751, tv: 10762},
	{name: "news", tv: 10763},
	{name: "reality", tv: 10764},
	{name: "soap", tv: 10766},
	{name: "talk", tv: 10767},
	{name: "politics", tv: 10768},
}

var genreAliases = map[string]string{
	"action & adventure":   "action",
	"action and adventure": "action",
	"actions":              "action",
	"adventures":           "adventure",
	"animated":             "animation",
	"anime":                "animation",
	"cartoon":              "animation",
	"cartoons":             "animation",
	"comedies":             "comedy",
	"funny":                "comedy",
	"crimes":               "crime",
	"documentaries":        "documentary",
	"docs":                 "documentary",
	"dramas":               "drama",
	"children":             "kids",
	"historical":           "history",
	"scary":                "horror",
	"slasher":              "horror",
	"musical":              "music",
	"musicals":             "music",
	"mysteries":            "mystery",
	"romantic":             "romance",
	"romcom":               "romance",
	"rom-com":              "romance",
	"sci-fi":               "science fiction",
	"sci fi":               "science fiction",
	"scifi":                "science fiction",
	"sci-fi & fantasy":     "science fiction",
	"science-fiction":      "science fiction",
	"thrillers":            "thriller",
	"suspense":             "thriller",
	"war & politics":       "war",
	"westerns":             "western",
	"reality tv":           "reality",
	"soap opera":           "soap",
	"talk show":            "talk",
}

// CanonicalGenre maps a free-text genre name onto the vocabulary.
func CanonicalGenre(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if alias, ok := genreAliases[key]; ok {
		key = alias
	}
	for _, g := range genres {
		if g.name == key {
			return g.name, true
		}
	}
	return "", false
}

// GenreID returns the catalog genre ID for a canonical genre name and media type.
func GenreID(name string, mt MediaType) (int, bool) {
	canon, ok := CanonicalGenre(name)
	if !ok {
		return 0, false
	}
	for _, g := range genres {
		if g.name != canon {
			continue
		}
		id := g.movie
		if mt == TV {
			id = g.tv
		}
		return id, id != 0
	}
	return 0, false
}

// GenreNames lists the vocabulary in declaration order.
func GenreNames() []string {
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.name
	}
	return names
}

// GenreKeywords returns every name and alias that resolves to a genre,
// longest first so multi-word phrases win over their parts.
func GenreKeywords() []string {
	kw := make([]string, 0, len(genres)+len(genreAliases))
	for _, g := range genres {
		kw = append(kw, g.name)
	}
	for alias := range genreAliases {
		kw = append(kw, alias)
	}
	slices.SortFunc(kw, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return kw
}
