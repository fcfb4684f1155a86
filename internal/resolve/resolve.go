// Package resolve maps actor and director names to catalog person IDs.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/popcorn/internal/tmdb"
)

// PersonSearcher finds people by name. *tmdb.Client implements it.
type PersonSearcher interface {
	SearchPerson(ctx context.Context, query string) ([]tmdb.Person, error)
}

// Cache remembers name lookups for the lifetime of one conversation.
// Misses are cached; failed lookups are not.
type Cache struct {
	mu      sync.Mutex
	entries map[string]int
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]int)}
}

func (c *Cache) get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[key]
	return id, ok
}

func (c *Cache) put(key string, id int) {
	c.mu.Lock()
	c.entries[key] = id
	c.mu.Unlock()
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached name.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Resolver looks up the top-ranked person for a name.
type Resolver struct {
	search PersonSearcher
	cache  *Cache
}

// New creates a Resolver. A nil cache disables caching.
func New(search PersonSearcher, cache *Cache) *Resolver {
	return &Resolver{search: search, cache: cache}
}

// ResolveActor returns the person ID for an actor name.
func (r *Resolver) ResolveActor(ctx context.Context, name string) (int, bool) {
	return r.resolve(ctx, "actor", name)
}

// ResolveDirector returns the person ID for a director name.
func (r *Resolver) ResolveDirector(ctx context.Context, name string) (int, bool) {
	return r.resolve(ctx, "director", name)
}

func (r *Resolver) resolve(ctx context.Context, role, name string) (int, bool) {
	key := normalizeName(name)
	if key == "" || r.search == nil {
		return 0, false
	}

	if r.cache == nil {
		id, err := r.lookup(ctx, name)
		if err != nil {
			slog.Warn("person lookup failed", "role", role, "name", name, "error", err)
			return 0, false
		}
		return id, id != 0
	}

	if id, ok := r.cache.get(key); ok {
		return id, id != 0
	}

	v, err, _ := r.cache.group.Do(key, func() (any, error) {
		if id, ok := r.cache.get(key); ok {
			return id, nil
		}
		id, err := r.lookup(ctx, name)
		if err != nil {
			return 0, err
		}
		r.cache.put(key, id)
		return id, nil
	})
	if err != nil {
		slog.Warn("person lookup failed", "role", role, "name", name, "error", err)
		return 0, false
	}
	id := v.(int)
	if id == 0 {
		slog.Info("person not found", "role", role, "name", name)
	}
	return id, id != 0
}

func (r *Resolver) lookup(ctx context.Context, name string) (int, error) {
	people, err := r.search.SearchPerson(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("searching %q: %w", name, err)
	}
	if len(people) == 0 {
		return 0, nil
	}
	return people[0].ID, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
