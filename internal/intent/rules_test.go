package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/popcorn/internal/filter"
)

func rulesFilter(utterance string) filter.Filter {
	return filter.Normalize(ParseRules(utterance), nil)
}

func TestParseRules_YearForms(t *testing.T) {
	cases := []struct {
		in                  string
		year, after, before int
	}{
		{in: "movies from 2010 to 2015", after: 2010, before: 2015},
		{in: "films between 1995 and 1999", after: 1995, before: 1999},
		{in: "2015-2010 comedies", after: 2010, before: 2015},
		{in: "90s thrillers", after: 1990, before: 1999},
		{in: "the 1980s", after: 1980, before: 1989},
		{in: "early 2000s dramas", after: 2000, before: 2003},
		{in: "late 70s westerns", after: 1976, before: 1979},
		{in: "horror after 2010", after: 2011},
		{in: "horror since 2010", after: 2010},
		{in: "films before 2000", before: 1999},
		{in: "films until 2000", before: 2000},
		{in: "pre-1960 noir", before: 1959},
		{in: "movies from 2015", year: 2015},
		{in: "movies from 2015 onwards", after: 2015},
		{in: "2018 or later", after: 2018},
		{in: "anything in 1994", year: 1994},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			f := rulesFilter(tc.in)
			assert.Equal(t, tc.year, f.Year, "year")
			assert.Equal(t, tc.after, f.YearAfter, "year_after")
			assert.Equal(t, tc.before, f.YearBefore, "year_before")
		})
	}
}

func TestParseRules_Rating(t *testing.T) {
	cases := map[string]float64{
		"movies rated above 7":         7,
		"rating at least 8.5":          8.5,
		"comedies with 7+ rating":      7,
		"8/10 or better":               8,
		"highly rated documentaries":   7.5,
		"critically acclaimed dramas":  7.5,
		"top 20 movies":                0,
		"movies with a score over 75%": 7.5,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.InDelta(t, want, rulesFilter(in).MinRating, 0.001)
		})
	}
}

func TestParseRules_MediaTypeAndGenre(t *testing.T) {
	f := rulesFilter("funny tv shows")
	assert.Equal(t, filter.TV, f.MediaType)
	assert.Equal(t, "comedy", f.Genre)

	f = rulesFilter("scary movies")
	assert.Equal(t, filter.Movie, f.MediaType)
	assert.Equal(t, "horror", f.Genre)

	f = rulesFilter("best sci-fi series")
	assert.Equal(t, filter.TV, f.MediaType)
	assert.Equal(t, "science fiction", f.Genre)

	f = rulesFilter("show me something good")
	assert.Equal(t, filter.Movie, f.MediaType)
	assert.Empty(t, f.Genre)
}

func TestParseRules_People(t *testing.T) {
	cases := []struct {
		in, actor, director string
	}{
		{in: "movies starring Tom Hanks", actor: "Tom Hanks"},
		{in: "action films with Keanu Reeves from 1999", actor: "Keanu Reeves"},
		{in: "something featuring meryl streep", actor: "Meryl Streep"},
		{in: "Denzel Washington movies", actor: "Denzel Washington"},
		{in: "directed by Christopher Nolan", director: "Christopher Nolan"},
		{in: "thrillers directed by david fincher after 2000", director: "David Fincher"},
		{in: "films by Greta Gerwig", director: "Greta Gerwig"},
		{in: "directed by Denis Villeneuve starring Amy Adams", actor: "Amy Adams", director: "Denis Villeneuve"},
		{in: "action movies with tom cruise", actor: "Tom Cruise"},
		{in: "comedies with great dialogue", actor: ""},
		{in: "movies with big loud fast cars", actor: ""},
		{in: "sci-fi films 2015 Keanu Reeves", actor: "Keanu Reeves"},
		{in: "I want something with Tom Hanks", actor: "Tom Hanks"},
		{in: "something like Tom Hanks", actor: "Tom Hanks"},
		{in: "directed by Nan Goldin", director: "Nan Goldin"},
		{in: "movies with high ratings", actor: ""},
		{in: "Science Fiction movies", actor: ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			f := rulesFilter(tc.in)
			assert.Equal(t, tc.actor, f.Actor, "actor")
			assert.Equal(t, tc.director, f.Director, "director")
		})
	}
}

func TestParseRules_TrailingNameKeepsYearsAndLimit(t *testing.T) {
	f := rulesFilter("Top 20 action movies 2010-2020 Tom Cruise")
	assert.Equal(t, "Tom Cruise", f.Actor)
	assert.Equal(t, "action", f.Genre)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 2010, f.YearAfter)
	assert.Equal(t, 2020, f.YearBefore)
	assert.Equal(t, filter.Movie, f.MediaType)
}

func TestParseRules_NamesDoNotLeakIntoGenre(t *testing.T) {
	f := rulesFilter("thrillers directed by Christopher Nolan")
	assert.Equal(t, "thriller", f.Genre)
	assert.Equal(t, "Christopher Nolan", f.Director)
}

func TestParseRules_Limit(t *testing.T) {
	f := rulesFilter("top 20 action movies from 2019")
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, "action", f.Genre)
	assert.Equal(t, 2019, f.Year)
}

func TestParseRules_NothingRecognised(t *testing.T) {
	raw := ParseRules("hello there")
	require.NotNil(t, raw.Fields)
	assert.Empty(t, raw.Fields)
	assert.Equal(t, filter.Default(), filter.Normalize(raw, nil))
}

func FuzzParseRules(f *testing.F) {
	for _, seed := range []string{
		"", "top 5 90s horror", "directed by", "with", "rated > 99.9", "2010-1800",
		"early '00s", "starring ' ' '", "Ünïcödé Nämé movies", "from 2015 onwards and 1999 or later",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		got := filter.Normalize(ParseRules(s), nil)
		if got.Limit < filter.MinLimit || got.Limit > filter.MaxLimit {
			t.Fatalf("limit %d out of range for %q", got.Limit, s)
		}
		if got.MediaType != filter.Movie && got.MediaType != filter.TV {
			t.Fatalf("media type %q for %q", got.MediaType, s)
		}
		if got.MinRating < 0 || got.MinRating > 10 {
			t.Fatalf("rating %v for %q", got.MinRating, s)
		}
		if got.YearAfter != 0 && got.YearBefore != 0 && got.YearAfter > got.YearBefore {
			t.Fatalf("inverted range %d-%d for %q", got.YearAfter, got.YearBefore, s)
		}
		if got.Year != 0 && (got.YearAfter != 0 || got.YearBefore != 0) {
			t.Fatalf("year and range both set for %q", s)
		}
		if got.Summary == "" {
			t.Fatalf("empty summary for %q", s)
		}
	})
}
