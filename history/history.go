package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/nccc-portal-client/gateway"
	internalerrors "github.com/jrsteele09/nccc-portal-client/internal/errors"
	"github.com/jrsteele09/nccc-portal-client/search"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Route is the search-history collection, relative to the API root.
const Route = "/history"

const (
	msgFetchFailed  = "Failed to fetch history"
	msgSaveFailed   = "Failed to save search history"
	msgDeleteFailed = "Failed to delete history"
	msgClearFailed  = "Failed to clear history"
)

// Entry is one recorded search.
type Entry struct {
	ID           string    `json:"_id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"resultsCount"`
	Tab          string    `json:"tab"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Page is the signed-in user's history, newest first.
type Page struct {
	History []Entry `json:"history"`
	Total   int     `json:"total"`
}

// Client reads and writes the signed-in user's search history.
type Client struct {
	transport gateway.Sender
}

// NewClient creates a Client.
func NewClient(transport gateway.Sender) (*Client, error) {
	if transport == nil {
		return nil, errors.New("[NewClient] transport is required")
	}
	return &Client{transport: transport}, nil
}

// List returns the history.
func (c *Client) List(ctx context.Context) (Page, error) {
	env, err := gateway.Call[Page](ctx, c.transport, http.MethodGet, Route, nil)
	if err := outcome(err, env.Success, env.Message, msgFetchFailed); err != nil {
		return Page{}, err
	}
	return env.Data, nil
}

// Add records a search. tab defaults to "all".
func (c *Client) Add(ctx context.Context, query string, resultsCount int, tab string) (Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Entry{}, errors.Wrap(internalerrors.ErrInvalidInput, "[Add] query is required")
	}
	if tab == "" {
		tab = search.TabAll
	}
	env, err := gateway.Call[Entry](ctx, c.transport, http.MethodPost, Route, map[string]any{
		"query":        query,
		"resultsCount": resultsCount,
		"tab":          tab,
	})
	if err := outcome(err, env.Success, env.Message, msgSaveFailed); err != nil {
		return Entry{}, err
	}
	return env.Data, nil
}

// Delete removes one entry.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.Wrap(internalerrors.ErrInvalidInput, "[Delete] id is required")
	}
	env, err := gateway.Call[json.RawMessage](ctx, c.transport, http.MethodDelete, Route+"/"+url.PathEscape(id), nil)
	return outcome(err, env.Success, env.Message, msgDeleteFailed)
}

// ClearAll removes every entry.
func (c *Client) ClearAll(ctx context.Context) error {
	env, err := gateway.Call[json.RawMessage](ctx, c.transport, http.MethodDelete, Route, nil)
	return outcome(err, env.Success, env.Message, msgClearFailed)
}

// Record adds a finished search to the history. History is not critical:
// failures are logged and otherwise ignored. Sessions that did not complete
// are skipped.
func (c *Client) Record(ctx context.Context, s search.Session) {
	if s.Phase != search.PhaseComplete {
		return
	}
	if _, err := c.Add(ctx, s.Query, s.Total, s.Tab); err != nil {
		log.Warn().Err(err).Str("query_id", s.ID).Msg("Failed to save search history")
	}
}

// outcome folds a call's error and envelope into one error carrying a
// user-facing message.
func outcome(err error, success bool, message, fallback string) error {
	if err != nil {
		return errors.Wrap(err, gateway.ErrorMessage(err, fallback))
	}
	if !success {
		if message == "" {
			message = fallback
		}
		return errors.New(message)
	}
	return nil
}
