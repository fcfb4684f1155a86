// Package results turns raw catalog pages into the bounded, ranked list
// shown to the user.
package results

import (
	"cmp"
	"slices"

	"github.com/kalambet/popcorn/internal/filter"
	"github.com/kalambet/popcorn/internal/tmdb"
)

// Item is the read-only projection of a catalog title.
type Item struct {
	ID          int              `json:"id"`
	Title       string           `json:"title"`
	Overview    string           `json:"overview"`
	PosterPath  string           `json:"poster_path,omitempty"`
	PosterURL   string           `json:"poster_url,omitempty"`
	Rating      float64          `json:"rating"`
	Popularity  float64          `json:"popularity"`
	ReleaseDate *string          `json:"release_date"`
	MediaType   filter.MediaType `json:"media_type"`
}

// Processor applies the filter's constraints client side.
type Processor struct {
	ImageBaseURL string
}

// Process dedupes raw by id (first occurrence wins), drops everything the
// filter rejects, ranks by rating, popularity and id, and returns at most
// f.Limit items. The result is never nil.
func (p Processor) Process(raw []tmdb.Result, f filter.Filter) []Item {
	seen := make(map[int]struct{}, len(raw))
	kept := make([]tmdb.Result, 0, len(raw))
	for _, r := range raw {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if Accept(r, f) {
			kept = append(kept, r)
		}
	}

	slices.SortStableFunc(kept, func(a, b tmdb.Result) int {
		if c := cmp.Compare(b.VoteAverage, a.VoteAverage); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	limit := filter.ClampLimit(f.Limit)
	if len(kept) > limit {
		kept = kept[:limit]
	}

	items := make([]Item, len(kept))
	for i, r := range kept {
		items[i] = p.item(r, f.MediaType)
	}
	return items
}

// Accept reports whether a single result satisfies f's rating, year and
// genre constraints. Adult titles are always rejected.
func Accept(r tmdb.Result, f filter.Filter) bool {
	if r.Adult {
		return false
	}
	if f.MinRating > 0 && r.VoteAverage < f.MinRating {
		return false
	}
	if !f.YearAllowed(r.Year()) {
		return false
	}
	if id, ok := f.GenreID(); ok && !r.HasGenre(id) {
		return false
	}
	return true
}

func (p Processor) item(r tmdb.Result, mt filter.MediaType) Item {
	it := Item{
		ID:         r.ID,
		Title:      r.DisplayTitle(),
		Overview:   r.Overview,
		PosterPath: r.PosterPath,
		PosterURL:  tmdb.ImageURL(p.ImageBaseURL, r.PosterPath),
		Rating:     r.VoteAverage,
		Popularity: r.Popularity,
		MediaType:  mt,
	}
	if d := r.Date(); d != "" {
		it.ReleaseDate = &d
	}
	return it
}
