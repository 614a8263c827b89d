package gateway

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/nccc-portal-client/internal/errors"
)

// Envelope is the shape every backend response shares.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Sender is the request surface the domain clients depend on.
type Sender interface {
	Send(ctx context.Context, method, path string, body any) (*Response, error)
}

// Decode parses a response body into an Envelope.
func Decode[T any](resp *Response) (Envelope[T], error) {
	var env Envelope[T]
	if resp == nil || len(resp.Body) == 0 {
		return env, errors.Wrapf(errors.ErrBadEnvelope, "empty body")
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env, errors.Wrapf(errors.ErrBadEnvelope, "decode envelope: %v", err)
	}
	return env, nil
}

// Call sends the request and decodes a 2xx body. Non-2xx and transport
// failures are returned unchanged from Send.
func Call[T any](ctx context.Context, s Sender, method, path string, body any) (Envelope[T], error) {
	resp, err := s.Send(ctx, method, path, body)
	if err != nil {
		return Envelope[T]{}, err
	}
	return Decode[T](resp)
}

func envelopeMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}
