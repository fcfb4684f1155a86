package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(fields map[string]any) Raw {
	return Raw{Fields: fields}
}

func TestNormalizeDefaults(t *testing.T) {
	f := Normalize(Raw{}, nil)
	assert.Equal(t, Movie, f.MediaType)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.NotEmpty(t, f.Summary)
}

func TestNormalizeClampsLimit(t *testing.T) {
	cases := map[string]struct {
		in   any
		want int
	}{
		"zero":     {0, 1},
		"negative": {-4, 1},
		"huge":     {500, 50},
		"string":   {"20", 20},
		"float":    {12.0, 12},
		"1e20":     {1e20, 50},
		"-1e20":    {-1e20, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := Normalize(raw(map[string]any{"limit": tc.in}), nil)
			assert.Equal(t, tc.want, f.Limit)
		})
	}
}

func TestNormalizeLimitFromUtterance(t *testing.T) {
	f := Normalize(Raw{Fields: map[string]any{"genre": "comedy"}, Utterance: "top 20 comedies"}, nil)
	assert.Equal(t, 20, f.Limit)

	f = Normalize(Raw{Utterance: "give me 5 films"}, nil)
	assert.Equal(t, 5, f.Limit)

	// explicit limit beats the text heuristic
	f = Normalize(Raw{Fields: map[string]any{"limit": 3}, Utterance: "top 20"}, nil)
	assert.Equal(t, 3, f.Limit)
}

func TestLimitFromTextIgnoresYears(t *testing.T) {
	_, ok := LimitFromText("movies from 2010")
	assert.False(t, ok)
	_, ok = LimitFromText("90s thrillers")
	assert.False(t, ok)
	n, ok := LimitFromText("Top 100 movies")
	require.True(t, ok)
	assert.Equal(t, MaxLimit, n)
}

func TestNormalizeMalformedValues(t *testing.T) {
	f := Normalize(raw(map[string]any{
		"type":       "podcast",
		"genre":      "superhero",
		"year":       "soon",
		"year_after": 99999,
		"min_rating": -3,
		"actor":      "null",
		"director":   42,
		"limit":      "lots",
	}), nil)

	assert.Equal(t, Default(), f)
}

func TestNormalizeIgnoresOutOfRangeFloatYears(t *testing.T) {
	f := Normalize(raw(map[string]any{"year": 1e20, "year_after": -1e20, "year_before": 2100.5}), nil)
	assert.Zero(t, f.Year)
	assert.Zero(t, f.YearAfter)
	assert.Equal(t, 2100, f.YearBefore)
}

func TestNormalizeCamelCaseKeys(t *testing.T) {
	f := Normalize(raw(map[string]any{
		"mediaType":  "tv",
		"yearAfter":  "2005",
		"yearBefore": 2010.0,
		"minRating":  "7.5+",
	}), nil)

	assert.Equal(t, TV, f.MediaType)
	assert.Equal(t, 2005, f.YearAfter)
	assert.Equal(t, 2010, f.YearBefore)
	assert.InDelta(t, 7.5, f.MinRating, 0.001)
}

func TestNormalizeSwapsInvertedRange(t *testing.T) {
	f := Normalize(raw(map[string]any{"year_after": 2015, "year_before": 2010}), nil)
	assert.Equal(t, 2010, f.YearAfter)
	assert.Equal(t, 2015, f.YearBefore)
}

func TestNormalizeRatingCappedAtTen(t *testing.T) {
	f := Normalize(raw(map[string]any{"min_rating": 42}), nil)
	assert.Equal(t, 10.0, f.MinRating)
}

func TestNormalizeGenreAliases(t *testing.T) {
	f := Normalize(raw(map[string]any{"genre": "Sci-Fi"}), nil)
	assert.Equal(t, "science fiction", f.Genre)

	f = Normalize(raw(map[string]any{"genre": []any{"unknown", "Scary"}}), nil)
	assert.Equal(t, "horror", f.Genre)
}

func TestNormalizeDropsGenreWithoutTVEquivalent(t *testing.T) {
	f := Normalize(raw(map[string]any{"genre": "horror", "type": "tv"}), nil)
	assert.Empty(t, f.Genre)

	id, ok := Normalize(raw(map[string]any{"genre": "action", "type": "tv"}), nil).GenreID()
	require.True(t, ok)
	assert.Equal(t, 10759, id)
}

func TestMergeEmptyPartialIsIdentity(t *testing.T) {
	prev := Normalize(raw(map[string]any{
		"genre": "action", "year_after": 2010, "actor": "Tom Cruise", "summary": "custom",
	}), nil)

	assert.Equal(t, prev, Merge(prev, Raw{}))
	assert.Equal(t, prev, Merge(prev, raw(map[string]any{"genre": nil, "actor": ""})))
}

func TestMergeFollowUpKeepsEarlierFields(t *testing.T) {
	prev := Normalize(raw(map[string]any{"genre": "action", "year_after": 2010}), nil)
	got := Merge(prev, raw(map[string]any{"actor": "Tom Cruise"}))

	assert.Equal(t, "action", got.Genre)
	assert.Equal(t, 2010, got.YearAfter)
	assert.Equal(t, "Tom Cruise", got.Actor)
	assert.Contains(t, got.Summary, "Tom Cruise")
}

func TestMergeYearReplacesRange(t *testing.T) {
	prev := Normalize(raw(map[string]any{"year_after": 2010, "year_before": 2015}), nil)

	got := Merge(prev, raw(map[string]any{"year": 1999}))
	assert.Equal(t, 1999, got.Year)
	assert.Zero(t, got.YearAfter)
	assert.Zero(t, got.YearBefore)

	back := Merge(got, raw(map[string]any{"year_before": 2005}))
	assert.Zero(t, back.Year)
	assert.Equal(t, 2005, back.YearBefore)
}

func TestYearAllowedInclusive(t *testing.T) {
	f := Filter{YearAfter: 2010, YearBefore: 2015}
	assert.True(t, f.YearAllowed(2010))
	assert.True(t, f.YearAllowed(2015))
	assert.False(t, f.YearAllowed(2009))
	assert.False(t, f.YearAllowed(2016))
	assert.False(t, f.YearAllowed(0))
	assert.True(t, Filter{}.YearAllowed(0))
}

func TestDescribe(t *testing.T) {
	f := Filter{MediaType: TV, Genre: "comedy", YearAfter: 2000, YearBefore: 2009, MinRating: 8, Limit: 5}
	assert.Equal(t, "Top 5 comedy TV shows released 2000-2009 rated 8+", f.Describe())
}

func TestFilterJSONShape(t *testing.T) {
	b, err := json.Marshal(Default())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "movie", m["media_type"])
	assert.EqualValues(t, 10, m["limit"])
	assert.NotContains(t, m, "actor")
}

func TestIsZero(t *testing.T) {
	assert.True(t, Default().IsZero())

	f := Default()
	f.MediaType = TV
	f.Limit = 3
	assert.True(t, f.IsZero())

	f.YearBefore = 1999
	assert.False(t, f.IsZero())
}
