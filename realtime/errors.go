package realtime

import "github.com/jrsteele09/nccc-portal-client/internal/errors"

// Errors reported by Channel.Err and Message.Decode.
var (
	ErrChannelClosed  = errors.ErrChannelClosed
	ErrChannelDropped = errors.ErrChannelDropped
	ErrBadEnvelope    = errors.ErrBadEnvelope
)
