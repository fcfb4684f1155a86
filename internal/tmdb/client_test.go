package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, key string) *Client {
	t.Helper()
	c := New(Config{APIKey: key, BaseURL: srv.URL, Timeout: time.Second})
	c.backoff = time.Millisecond
	return c
}

func TestDiscoverSendsParams(t *testing.T) {
	var got url.Values
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		got = r.URL.Query()
		fmt.Fprint(w, `{"page":2,"total_pages":7,"total_results":140,"results":[{"id":11,"title":"Star Wars","release_date":"1977-05-25","vote_average":8.2,"popularity":90.5,"genre_ids":[12,28,878]}]}`)
	}))
	defer srv.Close()

	params := url.Values{}
	params.Set("with_genres", "878")
	params.Set("sort_by", "popularity.desc")

	p, err := newTestClient(t, srv, "v3key").Discover(context.Background(), "movie", params, 2)
	require.NoError(t, err)

	assert.Equal(t, "/discover/movie", gotPath)
	assert.Equal(t, "878", got.Get("with_genres"))
	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "v3key", got.Get("api_key"))
	assert.Equal(t, "en-US", got.Get("language"))
	assert.Empty(t, params.Get("page"), "caller params must not be mutated")

	require.Len(t, p.Results, 1)
	assert.Equal(t, 7, p.TotalPages)
	assert.Equal(t, "Star Wars", p.Results[0].DisplayTitle())
	assert.Equal(t, 1977, p.Results[0].Year())
	assert.True(t, p.Results[0].HasGenre(878))
}

func TestBearerAuthForReadToken(t *testing.T) {
	var auth, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		apiKey = r.URL.Query().Get("api_key")
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"}]}`)
	}))
	defer srv.Close()

	token := "eyJhbGciOiJIUzI1NiJ9.eyJhdWQiOiJ4In0.sig"
	genres, err := newTestClient(t, srv, token).Genres(context.Background(), "movie")
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+token, auth)
	assert.Empty(t, apiKey)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}}, genres)
}

func TestSearchPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/person", r.URL.Path)
		assert.Equal(t, "Tom Hanks", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"results":[{"id":31,"name":"Tom Hanks","known_for_department":"Acting"}]}`)
	}))
	defer srv.Close()

	people, err := newTestClient(t, srv, "k").SearchPerson(context.Background(), "Tom Hanks")
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, 31, people[0].ID)
}

func TestPersonCredits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person/525/movie_credits", r.URL.Path)
		fmt.Fprint(w, `{"id":525,"cast":[],"crew":[{"id":155,"title":"The Dark Knight","job":"Director","department":"Directing","release_date":"2008-07-16"},{"id":27205,"title":"Inception","job":"Writer","department":"Writing"}]}`)
	}))
	defer srv.Close()

	cr, err := newTestClient(t, srv, "k").PersonCredits(context.Background(), 525, "movie")
	require.NoError(t, err)
	require.Len(t, cr.Crew, 2)
	assert.Equal(t, "Director", cr.Crew[0].Job)
	assert.Equal(t, "The Dark Knight", cr.Crew[0].DisplayTitle())
	assert.Equal(t, 2008, cr.Crew[0].Year())
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, `{"page":1,"results":[]}`)
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, "k").Discover(context.Background(), "tv", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, "k").Discover(context.Background(), "movie", nil, 1)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status_message":"Invalid API key"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, "bad").SearchPerson(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNetworkErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv, "k")
	srv.Close()

	_, err := c.Genres(context.Background(), "tv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
}

func TestTransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv, "SECRETKEY123")
	srv.Close()

	_, err := c.SearchPerson(context.Background(), "Tom Cruise")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETKEY123")
	assert.NotContains(t, err.Error(), "api_key")
	assert.Contains(t, err.Error(), "/search/person")
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "k")
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Discover(ctx, "movie", nil, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestResultFallbacks(t *testing.T) {
	r := Result{OriginalName: "  ", Name: "Dark", FirstAirDate: "2017-12-01"}
	assert.Equal(t, "Dark", r.DisplayTitle())
	assert.Equal(t, "2017-12-01", r.Date())
	assert.Equal(t, 2017, r.Year())

	r = Result{OriginalTitle: "Amélie"}
	assert.Equal(t, "Amélie", r.DisplayTitle())
	assert.Equal(t, 0, r.Year())
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "", ImageURL("", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", ImageURL("", "/abc.jpg"))
	assert.Equal(t, "http://img/w92/abc.jpg", ImageURL("http://img/w92/", "/abc.jpg"))
}
