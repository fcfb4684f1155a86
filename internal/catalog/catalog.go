// Package catalog turns a normalized filter into catalog requests and
// post-processed results.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/popcorn/internal/filter"
	"github.com/kalambet/popcorn/internal/results"
	"github.com/kalambet/popcorn/internal/tmdb"
)

const (
	pageSize        = 20
	DefaultMaxPages = 3
	pageConcurrency = 3
)

// Strategy names the query path that produced a result.
type Strategy string

const (
	StrategyActor    Strategy = "actor"
	StrategyDirector Strategy = "director"
	StrategyDiscover Strategy = "discover"
)

// Catalog is the remote API surface the builder needs. *tmdb.Client
// implements it.
type Catalog interface {
	Discover(ctx context.Context, mediaType string, params url.Values, page int) (*tmdb.Page, error)
	PersonCredits(ctx context.Context, personID int, mediaType string) (*tmdb.Credits, error)
}

// PersonResolver maps names to person IDs.
type PersonResolver interface {
	ResolveActor(ctx context.Context, name string) (int, bool)
	ResolveDirector(ctx context.Context, name string) (int, bool)
}

// Result is the outcome of BuildAndFetch.
type Result struct {
	Items    []results.Item
	Strategy Strategy
	// Fallback is set when a person was requested but generic discovery
	// had to be used instead.
	Fallback bool
}

// Builder selects a query strategy for a filter and runs it.
type Builder struct {
	catalog   Catalog
	processor results.Processor
	maxPages  int
}

// NewBuilder creates a Builder. maxPages <= 0 selects DefaultMaxPages.
func NewBuilder(c Catalog, processor results.Processor, maxPages int) *Builder {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Builder{catalog: c, processor: processor, maxPages: maxPages}
}

// BuildAndFetch runs the actor path, then the director path, then generic
// discovery, returning the first one that yields results. Person path
// failures are logged and fall through; only a failure of generic
// discovery is returned.
func (b *Builder) BuildAndFetch(ctx context.Context, f filter.Filter, people PersonResolver) (Result, error) {
	f.Limit = filter.ClampLimit(f.Limit)
	personAsked := f.Actor != "" || f.Director != ""

	if people != nil && f.Actor != "" {
		if id, ok := people.ResolveActor(ctx, f.Actor); ok {
			items, err := b.byActor(ctx, f, id)
			if err != nil {
				slog.Warn("actor query failed", "actor", f.Actor, "error", err)
			} else if len(items) > 0 {
				return Result{Items: items, Strategy: StrategyActor}, nil
			}
		}
	}

	if people != nil && f.Director != "" {
		if id, ok := people.ResolveDirector(ctx, f.Director); ok {
			items, err := b.byDirector(ctx, f, id)
			if err != nil {
				slog.Warn("director query failed", "director", f.Director, "error", err)
			} else if len(items) > 0 {
				return Result{Items: items, Strategy: StrategyDirector}, nil
			}
		}
	}

	generic := f.WithoutPeople()
	raw, err := b.discover(ctx, generic, Params(generic))
	if err != nil {
		return Result{Items: []results.Item{}, Strategy: StrategyDiscover, Fallback: personAsked}, err
	}
	return Result{
		Items:    b.processor.Process(raw, generic),
		Strategy: StrategyDiscover,
		Fallback: personAsked,
	}, nil
}

func (b *Builder) byActor(ctx context.Context, f filter.Filter, personID int) ([]results.Item, error) {
	if f.MediaType == filter.TV {
		cr, err := b.catalog.PersonCredits(ctx, personID, string(filter.TV))
		if err != nil {
			return nil, err
		}
		return b.processor.Process(cr.Cast, f), nil
	}

	q := Params(f)
	q.Set("with_cast", strconv.Itoa(personID))
	raw, err := b.discover(ctx, f, q)
	if err != nil {
		return nil, err
	}
	return b.processor.Process(raw, f), nil
}

func (b *Builder) byDirector(ctx context.Context, f filter.Filter, personID int) ([]results.Item, error) {
	cr, err := b.catalog.PersonCredits(ctx, personID, string(f.MediaType))
	if err != nil {
		return nil, err
	}
	var raw []tmdb.Result
	for _, c := range cr.Crew {
		if directing(c, f.MediaType) {
			raw = append(raw, c.Result)
		}
	}
	return b.processor.Process(raw, f), nil
}

func directing(c tmdb.CrewCredit, mt filter.MediaType) bool {
	switch {
	case c.Job == "Director", c.Job == "Co-Director":
		return true
	case mt == filter.TV && c.Job == "Creator":
		return true
	}
	return false
}

// discover reads page 1, then the remaining pages concurrently. A failed
// first page is an error; later pages are best effort.
func (b *Builder) discover(ctx context.Context, f filter.Filter, q url.Values) ([]tmdb.Result, error) {
	mt := string(f.MediaType)
	first, err := b.catalog.Discover(ctx, mt, q, 1)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	pages := pagesFor(f.Limit, b.maxPages)
	if first.TotalPages > 0 && pages > first.TotalPages {
		pages = first.TotalPages
	}
	if pages <= 1 {
		return first.Results, nil
	}

	rest := make([][]tmdb.Result, pages-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageConcurrency)
	for i := range rest {
		page := i + 2
		g.Go(func() error {
			p, err := b.catalog.Discover(gctx, mt, q, page)
			if err != nil {
				return err
			}
			rest[i] = p.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("discover: extra pages failed, using partial results", "error", err)
	}

	all := first.Results
	for _, r := range rest {
		all = append(all, r...)
	}
	return all, nil
}
