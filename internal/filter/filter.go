// Package filter defines the structured movie/TV discovery filter and the
// normalizer that turns loosely-typed extraction output into it.
package filter

import (
	"fmt"
	"strings"
)

// MediaType selects between the movie and TV catalogs.
type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
)

const (
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50

	minYear = 1874
	maxYear = 2100
)

// Filter is the normalized query derived from one or more utterances.
// Zero values mean "not constrained": an empty Genre/Actor/Director, a zero
// year and a zero MinRating impose nothing.
type Filter struct {
	MediaType  MediaType `json:"media_type"`
	Genre      string    `json:"genre,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Director   string    `json:"director,omitempty"`
	Year       int       `json:"year,omitempty"`
	YearAfter  int       `json:"year_after,omitempty"`
	YearBefore int       `json:"year_before,omitempty"`
	MinRating  float64   `json:"min_rating,omitempty"`
	Limit      int       `json:"limit"`
	Summary    string    `json:"summary"`
}

// Default returns the filter used when nothing has been asked yet.
func Default() Filter {
	f := Filter{MediaType: Movie, Limit: DefaultLimit}
	f.Summary = f.Describe()
	return f
}

// GenreID returns the catalog genre ID of f's genre for f's media type.
func (f Filter) GenreID() (int, bool) {
	if f.Genre == "" {
		return 0, false
	}
	return GenreID(f.Genre, f.MediaType)
}

// HasYearConstraint reports whether any of the year fields is set.
func (f Filter) HasYearConstraint() bool {
	return f.Year != 0 || f.YearAfter != 0 || f.YearBefore != 0
}

// YearAllowed reports whether a release year satisfies the filter's exact
// year and inclusive range. Unknown years (0) fail any active constraint.
func (f Filter) YearAllowed(year int) bool {
	if !f.HasYearConstraint() {
		return true
	}
	if year == 0 {
		return false
	}
	if f.Year != 0 && year != f.Year {
		return false
	}
	if f.YearAfter != 0 && year < f.YearAfter {
		return false
	}
	if f.YearBefore != 0 && year > f.YearBefore {
		return false
	}
	return true
}

// IsZero reports whether f constrains nothing beyond media type and limit.
func (f Filter) IsZero() bool {
	return f.Genre == "" && f.Actor == "" && f.Director == "" && !f.HasYearConstraint() && f.MinRating == 0
}

// WithoutPeople returns a copy of f with the actor and director cleared.
func (f Filter) WithoutPeople() Filter {
	f.Actor = ""
	f.Director = ""
	return f
}

// Describe renders a short human-readable summary of the filter.
func (f Filter) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d", f.Limit)
	if f.Genre != "" {
		sb.WriteString(" " + f.Genre)
	}
	if f.MediaType == TV {
		sb.WriteString(" TV shows")
	} else {
		sb.WriteString(" movies")
	}
	if f.Actor != "" {
		sb.WriteString(" starring " + f.Actor)
	}
	if f.Director != "" {
		sb.WriteString(" directed by " + f.Director)
	}
	switch {
	case f.Year != 0:
		fmt.Fprintf(&sb, " from %d", f.Year)
	case f.YearAfter != 0 && f.YearBefore != 0:
		fmt.Fprintf(&sb, " released %d-%d", f.YearAfter, f.YearBefore)
	case f.YearAfter != 0:
		fmt.Fprintf(&sb, " released %d or later", f.YearAfter)
	case f.YearBefore != 0:
		fmt.Fprintf(&sb, " released %d or earlier", f.YearBefore)
	}
	if f.MinRating > 0 {
		fmt.Fprintf(&sb, " rated %s+", formatRating(f.MinRating))
	}
	return sb.String()
}

func formatRating(r float64) string {
	s := fmt.Sprintf("%.1f", r)
	return strings.TrimSuffix(s, ".0")
}

// ClampLimit forces n into [MinLimit, MaxLimit].
func ClampLimit(n int) int {
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func validYear(y int) bool {
	return y >= minYear && y <= maxYear
}
