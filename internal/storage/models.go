package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is the log row written for every assistant request.
type Interaction struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	Utterance   string    `json:"utterance"`
	FilterJSON  string    `json:"-"`
	Source      string    `json:"source"`
	Strategy    string    `json:"strategy"`
	Status      string    `json:"status"`
	ResultCount int       `json:"result_count"`
	DurationMS  int64     `json:"duration_ms"`
}

type interactionJSON struct {
	interactionAlias
	Filter json.RawMessage `json:"filter"`
}

type interactionAlias Interaction

// MarshalJSON embeds the stored filter as a JSON object.
func (i Interaction) MarshalJSON() ([]byte, error) {
	f := json.RawMessage(i.FilterJSON)
	if !json.Valid(f) {
		f = json.RawMessage("{}")
	}
	return json.Marshal(interactionJSON{interactionAlias(i), f})
}

func (i *Interaction) UnmarshalJSON(b []byte) error {
	var v interactionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*i = Interaction(v.interactionAlias)
	i.FilterJSON = string(v.Filter)
	return nil
}
