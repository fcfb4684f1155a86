package tmdb

import (
	"strconv"
	"strings"
)

// Result is one title as returned by discover and credits endpoints. Movies
// carry Title/ReleaseDate, TV shows carry Name/FirstAirDate.
type Result struct {
	ID            int     `json:"id"`
	Title         string  `json:"title,omitempty"`
	Name          string  `json:"name,omitempty"`
	OriginalTitle string  `json:"original_title,omitempty"`
	OriginalName  string  `json:"original_name,omitempty"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	FirstAirDate  string  `json:"first_air_date,omitempty"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids"`
	Adult         bool    `json:"adult"`
}

// DisplayTitle picks the first non-empty of title, name, original title
// and original name.
func (r Result) DisplayTitle() string {
	for _, s := range []string{r.Title, r.Name, r.OriginalTitle, r.OriginalName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Date returns the release date, falling back to the first air date.
func (r Result) Date() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

// Year is the four-digit year of Date, or 0 when unknown.
func (r Result) Year() int {
	d := r.Date()
	if len(d) < 4 {
		return 0
	}
	y, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}
	return y
}

// HasGenre reports whether id is among the result's genre IDs.
func (r Result) HasGenre(id int) bool {
	for _, g := range r.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Page is one page of a paginated list response.
type Page struct {
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
	Results      []Result `json:"results"`
}

// Person is a person search hit.
type Person struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	KnownForDepartment string  `json:"known_for_department"`
	Popularity         float64 `json:"popularity"`
}

// CrewCredit is a title a person worked on behind the camera.
type CrewCredit struct {
	Result
	Job        string `json:"job"`
	Department string `json:"department"`
}

// Credits lists a person's cast and crew credits for one media type.
type Credits struct {
	ID   int          `json:"id"`
	Cast []Result     `json:"cast"`
	Crew []CrewCredit `json:"crew"`
}

// Genre is an entry of the genre list.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
