package realtime

import (
	"encoding/json"

	"github.com/jrsteele09/nccc-portal-client/internal/errors"
)

// EventType names a frame on the search channel.
type EventType string

// Search protocol events. EventSearch is the only one the client sends.
const (
	EventSearch         EventType = "contract:search"
	EventSearchStart    EventType = "contract:search:start"
	EventSearchProgress EventType = "contract:search:progress"
	EventSearchResult   EventType = "contract:search:result"
	EventSearchComplete EventType = "contract:search:complete"
	EventSearchError    EventType = "contract:search:error"
)

// Terminal reports whether no further events are expected for the query
// after this one.
func (e EventType) Terminal() bool {
	return e == EventSearchComplete || e == EventSearchError
}

// Message is one frame on a Channel. QueryID correlates server events with
// the query that produced them; Payload holds one of the payload types below
// depending on Type.
type Message struct {
	Type    EventType       `json:"type"`
	QueryID string          `json:"queryId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SearchRequest is the payload of EventSearch.
type SearchRequest struct {
	Query string `json:"query"`
	Tab   string `json:"tab,omitempty"`
}

// Started is the payload of EventSearchStart.
type Started struct {
	Message string `json:"message"`
}

// Progress is the payload of EventSearchProgress.
type Progress struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Result is the payload of EventSearchResult. Contract is left raw so the
// channel does not depend on the record type.
type Result struct {
	Contract json.RawMessage `json:"contract"`
}

// Complete is the payload of EventSearchComplete.
type Complete struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// Failure is the payload of EventSearchError.
type Failure struct {
	Message string `json:"message"`
}

// NewMessage encodes payload into a Message.
func NewMessage(eventType EventType, queryID string, payload any) (Message, error) {
	msg := Message{Type: eventType, QueryID: queryID}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, errors.Wrapf(err, "encode %s payload", eventType)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return errors.Wrapf(errors.ErrBadEnvelope, "%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return errors.Wrapf(errors.ErrBadEnvelope, "%s: %v", m.Type, err)
	}
	return nil
}
