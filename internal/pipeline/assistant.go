// Package pipeline wires extraction, person resolution, catalog queries and
// session state into the assistant's request flow.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/popcorn/internal/catalog"
	"github.com/kalambet/popcorn/internal/filter"
	"github.com/kalambet/popcorn/internal/intent"
	"github.com/kalambet/popcorn/internal/resolve"
	"github.com/kalambet/popcorn/internal/results"
	"github.com/kalambet/popcorn/internal/session"
	"github.com/kalambet/popcorn/internal/storage"
)

// Status tells the presentation layer how to treat a Response.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
	// StatusStale marks a response superseded by a newer request on the
	// same session. It was not committed and should be discarded.
	StatusStale Status = "stale"
)

const (
	guidanceSummary = "Tell me what you feel like watching, for example \"top 5 sci-fi movies from the 90s\"."
	errorSummary    = "Something went wrong while searching. Please try again."
	emptySummary    = "I couldn't find any titles matching that. Try loosening the filters."
)

// Response is what one utterance produces.
type Response struct {
	RequestID string         `json:"request_id"`
	SessionID string         `json:"session_id"`
	Summary   string         `json:"summary"`
	Status    Status         `json:"status"`
	Movies    []results.Item `json:"movies"`
	Filter    filter.Filter  `json:"filter"`
	Strategy  string         `json:"strategy,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// Extractor turns an utterance into a filter.
type Extractor interface {
	Extract(ctx context.Context, utterance string, previous *filter.Filter) intent.Result
}

// Fetcher runs a filter against the catalog.
type Fetcher interface {
	BuildAndFetch(ctx context.Context, f filter.Filter, people catalog.PersonResolver) (catalog.Result, error)
}

// InteractionLog records finished requests.
type InteractionLog interface {
	SaveInteraction(i storage.Interaction) error
}

// Assistant answers utterances within sessions.
type Assistant struct {
	extractor Extractor
	fetcher   Fetcher
	people    resolve.PersonSearcher
	sessions  *session.Manager
	log       InteractionLog
}

// NewAssistant creates an Assistant. log may be nil.
func NewAssistant(extractor Extractor, fetcher Fetcher, people resolve.PersonSearcher, sessions *session.Manager, log InteractionLog) *Assistant {
	return &Assistant{extractor: extractor, fetcher: fetcher, people: people, sessions: sessions, log: log}
}

// Sessions returns the session manager the assistant commits into.
func (a *Assistant) Sessions() *session.Manager {
	return a.sessions
}

// Ask answers utterance within the session sessionID. An empty or unknown
// session ID starts a new session, reported in the response. Ask never
// fails: problems are reported through Response.Status.
func (a *Assistant) Ask(ctx context.Context, sessionID, utterance string) (resp Response) {
	start := time.Now()
	s, ok := a.sessions.Get(sessionID)
	if !ok {
		s = a.sessions.Create()
	}
	resp = Response{RequestID: uuid.NewString(), SessionID: s.ID, Movies: []results.Item{}}

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		if cur, ok := s.Current(); ok {
			resp.Filter = cur
		} else {
			resp.Filter = filter.Default()
		}
		resp.Summary = guidanceSummary
		resp.Status = StatusOK
		return resp
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("assistant panicked", "request_id", resp.RequestID, "panic", r)
			resp.Status = StatusError
			resp.Summary = errorSummary
			resp.Movies = []results.Item{}
		}
		a.record(s.ID, utterance, resp, time.Since(start))
	}()

	ticket := s.Begin()

	var previous *filter.Filter
	if cur, ok := s.Current(); ok {
		previous = &cur
	}
	ext := a.extractor.Extract(ctx, utterance, previous)
	f := ext.Filter
	resp.Filter = f
	resp.Source = ext.Source

	fetched, err := a.fetcher.BuildAndFetch(ctx, f, resolve.New(a.people, s.People()))
	resp.Strategy = string(fetched.Strategy)

	switch {
	case err != nil:
		slog.Error("catalog query failed", "request_id", resp.RequestID, "error", err)
		resp.Status = StatusError
		resp.Summary = errorSummary
	default:
		if fetched.Items != nil {
			resp.Movies = fetched.Items
		}
		resp.Status = StatusOK
		if ext.Degraded || fetched.Fallback {
			resp.Status = StatusDegraded
		}
		resp.Summary = summarize(f, fetched)
	}

	if !s.Commit(ticket, utterance, f) {
		slog.Info("request superseded", "request_id", resp.RequestID, "session_id", s.ID)
		resp.Status = StatusStale
	}
	return resp
}

func summarize(f filter.Filter, fetched catalog.Result) string {
	if len(fetched.Items) == 0 {
		return emptySummary
	}
	summary := f.Summary
	if summary == "" {
		summary = f.Describe()
	}
	if fetched.Fallback {
		who := f.Actor
		if who == "" {
			who = f.Director
		}
		return fmt.Sprintf("I couldn't find titles for %s, so here are similar picks. %s", who, summary)
	}
	return summary
}

func (a *Assistant) record(sessionID, utterance string, resp Response, took time.Duration) {
	if a.log == nil {
		return
	}
	fj, err := json.Marshal(resp.Filter)
	if err != nil {
		fj = []byte("{}")
	}
	err = a.log.SaveInteraction(storage.Interaction{
		ID:          resp.RequestID,
		SessionID:   sessionID,
		CreatedAt:   time.Now(),
		Utterance:   utterance,
		FilterJSON:  string(fj),
		Source:      resp.Source,
		Strategy:    resp.Strategy,
		Status:      string(resp.Status),
		ResultCount: len(resp.Movies),
		DurationMS:  took.Milliseconds(),
	})
	if err != nil {
		slog.Warn("failed to record interaction", "request_id", resp.RequestID, "error", err)
	}
}
