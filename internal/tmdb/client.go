// Package tmdb is a client for the parts of The Movie Database v3 API used
// for discovery: discover, person search, person credits and genre lists.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	DefaultLanguage     = "en-US"
	DefaultTimeout      = 10 * time.Second

	maxAttempts    = 3
	initialBackoff = 300 * time.Millisecond
)

// Config configures a Client. Zero values select the defaults.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	// Timeout bounds each individual HTTP call, retries included separately.
	Timeout time.Duration
}

// Client talks to the TMDB API.
type Client struct {
	apiKey     string
	bearer     bool
	baseURL    string
	language   string
	timeout    time.Duration
	backoff    time.Duration
	httpClient *http.Client
}

// New creates a Client. Keys that look like a v4 read access token (a JWT)
// are sent as a bearer token, anything else as the api_key query parameter.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		bearer:     strings.HasPrefix(cfg.APIKey, "eyJ") && strings.Count(cfg.APIKey, ".") == 2,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		timeout:    cfg.Timeout,
		backoff:    initialBackoff,
		httpClient: &http.Client{},
	}
}

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: unexpected status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Discover runs /discover/{movie|tv} with the given query parameters and page.
func (c *Client) Discover(ctx context.Context, mediaType string, params url.Values, page int) (*Page, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var p Page
	if err := c.get(ctx, "/discover/"+mediaType, q, &p); err != nil {
		return nil, fmt.Errorf("discover %s page %d: %w", mediaType, page, err)
	}
	return &p, nil
}

// SearchPerson returns person hits for query, most relevant first.
func (c *Client) SearchPerson(ctx context.Context, query string) ([]Person, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("include_adult", "false")
	var resp struct {
		Results []Person `json:"results"`
	}
	if err := c.get(ctx, "/search/person", q, &resp); err != nil {
		return nil, fmt.Errorf("search person %q: %w", query, err)
	}
	return resp.Results, nil
}

// PersonCredits returns the movie_credits or tv_credits of a person.
func (c *Client) PersonCredits(ctx context.Context, personID int, mediaType string) (*Credits, error) {
	var cr Credits
	path := fmt.Sprintf("/person/%d/%s_credits", personID, mediaType)
	if err := c.get(ctx, path, nil, &cr); err != nil {
		return nil, fmt.Errorf("person %d %s credits: %w", personID, mediaType, err)
	}
	return &cr, nil
}

// Genres returns the official genre list for a media type.
func (c *Client) Genres(ctx context.Context, mediaType string) ([]Genre, error) {
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/"+mediaType+"/list", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s genres: %w", mediaType, err)
	}
	return resp.Genres, nil
}

// get performs a GET with retries on rate limits, server errors and
// transport failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("language", c.language)
	if !c.bearer {
		q.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	var lastErr error
	for attempt := range maxAttempts {
		err := c.do(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}

		lastErr = err
		if attempt < maxAttempts-1 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			slog.Debug("tmdb request failed, retrying", "path", path, "attempt", attempt+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: redactURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// redactURL drops the query string from a *url.Error so the api_key never
// reaches error text or logs.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return &url.Error{Op: ue.Op, URL: "(redacted)", Err: ue.Err}
	}
	u.RawQuery = ""
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "tmdb request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}

// ImageURL joins an image base URL and a poster path. Empty paths yield "".
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if base == "" {
		base = DefaultImageBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
