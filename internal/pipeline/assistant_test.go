package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/popcorn/internal/catalog"
	"github.com/kalambet/popcorn/internal/filter"
	"github.com/kalambet/popcorn/internal/intent"
	"github.com/kalambet/popcorn/internal/results"
	"github.com/kalambet/popcorn/internal/session"
	"github.com/kalambet/popcorn/internal/storage"
)

type fakeExtractor struct {
	degraded bool
	previous []*filter.Filter
	mu       sync.Mutex
}

func (e *fakeExtractor) Extract(_ context.Context, utterance string, previous *filter.Filter) intent.Result {
	e.mu.Lock()
	e.previous = append(e.previous, previous)
	e.mu.Unlock()
	f := filter.Normalize(filter.Raw{Fields: map[string]any{"summary": utterance}, Utterance: utterance}, previous)
	return intent.Result{Filter: f, Source: "rules", Degraded: e.degraded}
}

type fakeFetcher struct {
	result  catalog.Result
	err     error
	panicky bool
	block   map[string]chan struct{}
	entered chan string
}

func (f *fakeFetcher) BuildAndFetch(_ context.Context, flt filter.Filter, _ catalog.PersonResolver) (catalog.Result, error) {
	if f.panicky {
		panic("boom")
	}
	if ch, ok := f.block[flt.Summary]; ok {
		f.entered <- flt.Summary
		<-ch
	}
	return f.result, f.err
}

type memLog struct {
	mu   sync.Mutex
	rows []storage.Interaction
	err  error
}

func (m *memLog) SaveInteraction(i storage.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, i)
	return m.err
}

func someItems(n int) []results.Item {
	items := make([]results.Item, n)
	for i := range items {
		items[i] = results.Item{ID: i + 1, Title: "t", Rating: 7}
	}
	return items
}

func newAssistant(ext Extractor, fetch Fetcher, log InteractionLog) *Assistant {
	return NewAssistant(ext, fetch, nil, session.NewManager(time.Minute), log)
}

func TestAskOK(t *testing.T) {
	log := &memLog{}
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{result: catalog.Result{Items: someItems(3), Strategy: catalog.StrategyDiscover}}, log)

	resp := a.Ask(context.Background(), "", "funny movies")

	assert.Equal(t, StatusOK, resp.Status)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.RequestID)
	assert.Len(t, resp.Movies, 3)
	assert.Equal(t, "funny movies", resp.Summary)
	assert.Equal(t, "discover", resp.Strategy)
	assert.Equal(t, "rules", resp.Source)

	s, ok := a.Sessions().Get(resp.SessionID)
	require.True(t, ok)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, resp.Filter, cur)

	require.Len(t, log.rows, 1)
	row := log.rows[0]
	assert.Equal(t, resp.RequestID, row.ID)
	assert.Equal(t, "ok", row.Status)
	assert.Equal(t, 3, row.ResultCount)
	var logged filter.Filter
	require.NoError(t, json.Unmarshal([]byte(row.FilterJSON), &logged))
	assert.Equal(t, resp.Filter, logged)
}

func TestAskPassesCurrentFilter(t *testing.T) {
	ext := &fakeExtractor{}
	a := newAssistant(ext, &fakeFetcher{result: catalog.Result{Items: someItems(1)}}, nil)

	first := a.Ask(context.Background(), "", "one")
	a.Ask(context.Background(), first.SessionID, "two")

	require.Len(t, ext.previous, 2)
	assert.Nil(t, ext.previous[0])
	require.NotNil(t, ext.previous[1])
	assert.Equal(t, "one", ext.previous[1].Summary)
}

func TestAskDegraded(t *testing.T) {
	a := newAssistant(&fakeExtractor{degraded: true}, &fakeFetcher{result: catalog.Result{Items: someItems(1)}}, nil)
	assert.Equal(t, StatusDegraded, a.Ask(context.Background(), "", "x").Status)

	b := newAssistant(&fakeExtractor{}, &fakeFetcher{result: catalog.Result{Items: someItems(1), Fallback: true}}, nil)
	resp := b.Ask(context.Background(), "", "x")
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestAskCatalogError(t *testing.T) {
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{err: errors.New("down")}, nil)

	resp := a.Ask(context.Background(), "", "anything")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, errorSummary, resp.Summary)
	assert.NotNil(t, resp.Movies)
	assert.Empty(t, resp.Movies)

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"movies":[]`)
}

func TestAskZeroResultsIsOK(t *testing.T) {
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{}, nil)

	resp := a.Ask(context.Background(), "", "obscure")
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, emptySummary, resp.Summary)
	assert.NotNil(t, resp.Movies)
}

func TestAskEmptyUtterance(t *testing.T) {
	fetch := &fakeFetcher{panicky: true}
	log := &memLog{}
	a := newAssistant(&fakeExtractor{}, fetch, log)

	resp := a.Ask(context.Background(), "", "   ")
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, guidanceSummary, resp.Summary)
	assert.Equal(t, filter.Default(), resp.Filter)
	assert.Empty(t, log.rows)
}

func TestAskRecoversPanics(t *testing.T) {
	log := &memLog{}
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{panicky: true}, log)

	resp := a.Ask(context.Background(), "", "boom")
	assert.Equal(t, StatusError, resp.Status)
	assert.NotNil(t, resp.Movies)
	require.Len(t, log.rows, 1)
	assert.Equal(t, "error", log.rows[0].Status)
}

func TestAskUnknownSessionStartsNew(t *testing.T) {
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{}, nil)

	resp := a.Ask(context.Background(), "no-such-session", "x")
	assert.NotEqual(t, "no-such-session", resp.SessionID)
	_, ok := a.Sessions().Get(resp.SessionID)
	assert.True(t, ok)
}

func TestAskLogFailureIsIgnored(t *testing.T) {
	a := newAssistant(&fakeExtractor{}, &fakeFetcher{result: catalog.Result{Items: someItems(1)}}, &memLog{err: errors.New("disk full")})
	assert.Equal(t, StatusOK, a.Ask(context.Background(), "", "x").Status)
}

func TestSupersededRequestIsStale(t *testing.T) {
	release := make(chan struct{})
	fetch := &fakeFetcher{
		result:  catalog.Result{Items: someItems(2)},
		block:   map[string]chan struct{}{"slow": release},
		entered: make(chan string, 1),
	}
	a := newAssistant(&fakeExtractor{}, fetch, nil)
	sid := a.Ask(context.Background(), "", "first").SessionID

	slow := make(chan Response, 1)
	go func() { slow <- a.Ask(context.Background(), sid, "slow") }()
	<-fetch.entered

	fast := a.Ask(context.Background(), sid, "fast")
	close(release)
	stale := <-slow

	assert.Equal(t, StatusOK, fast.Status)
	assert.Equal(t, StatusStale, stale.Status)

	s, _ := a.Sessions().Get(sid)
	cur, _ := s.Current()
	assert.Equal(t, "fast", cur.Summary)
	assert.Len(t, s.Turns(), 2)
}
