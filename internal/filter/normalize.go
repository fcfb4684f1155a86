package filter

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Raw is unvalidated extraction output: a loosely-typed object as decoded
// from model JSON or assembled by the rule parser, plus the utterance it
// came from. Both snake_case and camelCase keys are understood.
type Raw struct {
	Fields    map[string]any
	Utterance string
}

var keyAliases = map[string][]string{
	"media_type":  {"media_type", "mediaType", "type"},
	"genre":       {"genre", "genres"},
	"actor":       {"actor", "cast", "star"},
	"director":    {"director"},
	"year":        {"year"},
	"year_after":  {"year_after", "yearAfter"},
	"year_before": {"year_before", "yearBefore"},
	"min_rating":  {"min_rating", "minRating", "rating"},
	"limit":       {"limit", "count"},
	"summary":     {"summary"},
}

// KnownKeys reports whether fields contains at least one recognised filter
// key, regardless of its value.
func KnownKeys(fields map[string]any) bool {
	for _, names := range keyAliases {
		for _, n := range names {
			if _, ok := fields[n]; ok {
				return true
			}
		}
	}
	return false
}

func (r Raw) lookup(field string) (any, bool) {
	for _, n := range keyAliases[field] {
		if v, ok := r.Fields[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// partial holds the fields one Raw actually sets. nil means "not given".
type partial struct {
	mediaType  *MediaType
	genre      *string
	actor      *string
	director   *string
	year       *int
	yearAfter  *int
	yearBefore *int
	minRating  *float64
	limit      *int
	summary    *string
}

func (p partial) empty() bool {
	return p.mediaType == nil && p.genre == nil && p.actor == nil && p.director == nil &&
		p.year == nil && p.yearAfter == nil && p.yearBefore == nil &&
		p.minRating == nil && p.limit == nil && p.summary == nil
}

func parse(r Raw) partial {
	var p partial
	if v, ok := r.lookup("media_type"); ok {
		if mt, ok := asMediaType(v); ok {
			p.mediaType = &mt
		}
	}
	if v, ok := r.lookup("genre"); ok {
		if g, ok := asGenre(v); ok {
			p.genre = &g
		}
	}
	if v, ok := r.lookup("actor"); ok {
		if s, ok := asName(v); ok {
			p.actor = &s
		}
	}
	if v, ok := r.lookup("director"); ok {
		if s, ok := asName(v); ok {
			p.director = &s
		}
	}
	p.year = yearField(r, "year")
	p.yearAfter = yearField(r, "year_after")
	p.yearBefore = yearField(r, "year_before")
	if v, ok := r.lookup("min_rating"); ok {
		if f, ok := asFloat(v); ok && f > 0 {
			f = math.Min(f, 10)
			p.minRating = &f
		}
	}
	if v, ok := r.lookup("limit"); ok {
		if f, ok := asFloat(v); ok {
			// Clamped as a float: int() of an out-of-range float is undefined.
			n := int(math.Min(math.Max(f, MinLimit), MaxLimit))
			p.limit = &n
		}
	}
	if p.limit == nil {
		if n, ok := LimitFromText(r.Utterance); ok {
			p.limit = &n
		}
	}
	if v, ok := r.lookup("summary"); ok {
		if s, ok := asString(v); ok {
			p.summary = &s
		}
	}
	return p
}

func yearField(r Raw, field string) *int {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	if f < minYear || f > maxYear+1 {
		return nil
	}
	y := int(f)
	if !validYear(y) {
		return nil
	}
	return &y
}

// Normalize validates raw and merges it over previous (nil means no prior
// filter). Fields raw does not set keep their previous value; the result is
// always a complete, valid Filter.
func Normalize(raw Raw, previous *Filter) Filter {
	p := parse(raw)
	if p.empty() {
		if previous != nil {
			return *previous
		}
		return Default()
	}

	out := Default()
	if previous != nil {
		out = *previous
	}
	if out.MediaType != TV {
		out.MediaType = Movie
	}
	if out.Limit == 0 {
		out.Limit = DefaultLimit
	}

	if p.mediaType != nil {
		out.MediaType = *p.mediaType
	}
	if p.genre != nil {
		out.Genre = *p.genre
	}
	if p.actor != nil {
		out.Actor = *p.actor
	}
	if p.director != nil {
		out.Director = *p.director
	}

	switch {
	case p.year != nil:
		out.Year = *p.year
		out.YearAfter, out.YearBefore = 0, 0
	case p.yearAfter != nil || p.yearBefore != nil:
		out.Year = 0
		if p.yearAfter != nil {
			out.YearAfter = *p.yearAfter
		}
		if p.yearBefore != nil {
			out.YearBefore = *p.yearBefore
		}
	}
	if out.YearAfter != 0 && out.YearBefore != 0 && out.YearAfter > out.YearBefore {
		out.YearAfter, out.YearBefore = out.YearBefore, out.YearAfter
	}

	if p.minRating != nil {
		out.MinRating = *p.minRating
	}
	if p.limit != nil {
		out.Limit = *p.limit
	}
	out.Limit = ClampLimit(out.Limit)

	if out.Genre != "" {
		if _, ok := GenreID(out.Genre, out.MediaType); !ok {
			out.Genre = ""
		}
	}

	if p.summary != nil {
		out.Summary = *p.summary
	} else {
		out.Summary = out.Describe()
	}
	return out
}

// Merge applies a partial filter over an existing one.
func Merge(previous Filter, raw Raw) Filter {
	return Normalize(raw, &previous)
}

var (
	limitBefore = regexp.MustCompile(`(?i)\b(?:top|best|show me|give me|list|find me|recommend|suggest)\s+(\d{1,3})\b`)
	limitAfter  = regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:movies|films|shows|series|titles|results|picks|recommendations|options)\b`)
)

// LimitFromText finds an explicit result count such as "top 20" or
// "15 movies" in free text. The count is clamped into the valid range.
func LimitFromText(s string) (int, bool) {
	for _, re := range []*regexp.Regexp{limitBefore, limitAfter} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return ClampLimit(n), true
	}
	return 0, false
}

var nullWords = map[string]bool{
	"": true, "null": true, "nil": true, "none": true, "n/a": true,
	"any": true, "unknown": true, "undefined": true,
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if nullWords[strings.ToLower(s)] {
		return "", false
	}
	return s, true
}

func asName(v any) (string, bool) {
	s, ok := asString(v)
	if !ok {
		return "", false
	}
	return strings.Join(strings.Fields(s), " "), true
}

func asGenre(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s, ok := asString(t)
		if !ok {
			return "", false
		}
		return CanonicalGenre(s)
	case []any:
		for _, item := range t {
			if g, ok := asGenre(item); ok {
				return g, true
			}
		}
	case []string:
		for _, item := range t {
			if g, ok := CanonicalGenre(item); ok {
				return g, true
			}
		}
	}
	return "", false
}

func asMediaType(v any) (MediaType, bool) {
	s, ok := asString(v)
	if !ok {
		return "", false
	}
	switch strings.ToLower(s) {
	case "movie", "movies", "film", "films":
		return Movie, true
	case "tv", "tv show", "tv shows", "tv_show", "show", "shows", "series", "television":
		return TV, true
	}
	return "", false
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return asFloat(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s, ok := asString(t)
		if !ok {
			return 0, false
		}
		m := leadingNumber.FindString(s)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		return f, err == nil
	}
	return 0, false
}
