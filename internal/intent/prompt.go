package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/popcorn/internal/engine"
	"github.com/kalambet/popcorn/internal/filter"
)

const systemPromptTemplate = `You are Popcorn, a movie and TV discovery assistant. Extract structured search filters from the user's request. Your output must be ONLY a single valid JSON object. Do not include any other text, prose, or markdown.

Fields:
- "summary": one short, friendly sentence describing what will be shown.
- "type": "movie" or "tv".
- "genre": one of %s, or null.
- "year": an exact 4-digit release year, or null.
- "year_after": the earliest release year to include (inclusive), or null. "after 2010" means 2011, "since 2010" means 2010.
- "year_before": the latest release year to include (inclusive), or null. "before 2000" means 1999.
- "actor": the full name of one actor, or null.
- "director": the full name of one director, or null.
- "min_rating": minimum average rating on a 0-10 scale, or null.
- "limit": how many results the user asked for, or null.

Rules:
- Set only what the user asks for; use null for everything else.
- When a current filter is given, the request refines it. Return only the fields that change; the rest is kept.
- Use "year" for a single year and the range fields for decades or spans, never both.`

// BuildPrompt constructs the chat messages for filter extraction.
func BuildPrompt(utterance string, previous *filter.Filter) []engine.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, systemPromptTemplate, quotedGenres())

	if previous != nil {
		if b, err := json.Marshal(previous); err == nil {
			fmt.Fprintf(&sb, "\n\n[Current Filter]\n%s", b)
		}
	}

	return []engine.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: utterance},
	}
}

func quotedGenres() string {
	names := filter.GenreNames()
	for i, n := range names {
		names[i] = `"` + n + `"`
	}
	return strings.Join(names, ", ")
}

// filterSchema returns the JSON schema for structured filter output.
func filterSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"summary":     {Type: "string", Description: "One sentence describing the results"},
			"type":        {Type: "string", Description: "movie or tv"},
			"genre":       {Type: "string", Description: "Genre name from the vocabulary"},
			"year":        {Type: "integer", Description: "Exact release year"},
			"year_after":  {Type: "integer", Description: "Earliest release year, inclusive"},
			"year_before": {Type: "integer", Description: "Latest release year, inclusive"},
			"actor":       {Type: "string", Description: "Actor full name"},
			"director":    {Type: "string", Description: "Director full name"},
			"min_rating":  {Type: "number", Description: "Minimum rating 0-10"},
			"limit":       {Type: "integer", Description: "Number of results requested"},
		},
		Required: []string{"summary", "type"},
	}
}
