package catalog

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/kalambet/popcorn/internal/filter"
)

// Params builds the discover query for f. Person fields are not part of
// it; the actor cast filter is added by the caller.
func Params(f filter.Filter) url.Values {
	q := url.Values{}
	q.Set("sort_by", "popularity.desc")
	q.Set("include_adult", "false")

	if id, ok := f.GenreID(); ok {
		q.Set("with_genres", strconv.Itoa(id))
	}

	yearKey, dateKey := "primary_release_year", "primary_release_date"
	if f.MediaType == filter.TV {
		yearKey, dateKey = "first_air_date_year", "first_air_date"
	}
	if f.Year != 0 {
		q.Set(yearKey, strconv.Itoa(f.Year))
	}
	if f.YearAfter != 0 {
		q.Set(dateKey+".gte", fmt.Sprintf("%04d-01-01", f.YearAfter))
	}
	if f.YearBefore != 0 {
		q.Set(dateKey+".lte", fmt.Sprintf("%04d-12-31", f.YearBefore))
	}

	if f.MinRating > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	return q
}

// pagesFor is how many discover pages to read for a limit.
func pagesFor(limit, maxPages int) int {
	n := (filter.ClampLimit(limit)+pageSize-1)/pageSize + 1
	if maxPages > 0 {
		n = min(n, maxPages)
	}
	return max(n, 1)
}
