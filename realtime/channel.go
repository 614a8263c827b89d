package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/nccc-portal-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const eventBuffer = 64

// Channel is one live connection. Its authorization token is captured when
// it is dialed and never changes; a new token needs a new Channel.
type Channel struct {
	id    string
	token string
	conn  Conn

	events chan Message
	done   chan struct{}

	writeLock sync.Mutex
	closeOnce sync.Once
	lock      sync.RWMutex
	err       error
}

func newChannel(conn Conn, token string) *Channel {
	c := &Channel{
		id:     uuid.New().String(),
		token:  token,
		conn:   conn,
		events: make(chan Message, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// ID identifies the channel for logging and identity checks.
func (c *Channel) ID() string { return c.id }

// Token is the access token the channel was opened with.
func (c *Channel) Token() string { return c.token }

// Events delivers inbound frames in arrival order. It is closed once the
// connection ends. There is exactly one reader of the underlying connection,
// so a Channel should have exactly one consumer of Events.
func (c *Channel) Events() <-chan Message { return c.events }

// Done is closed when the channel is closed or the connection drops.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns why the channel ended: ErrChannelClosed after Close,
// ErrChannelDropped when the connection failed. It is nil while live.
func (c *Channel) Err() error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.err
}

// Live reports whether the channel is still open.
func (c *Channel) Live() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send writes msg to the connection.
func (c *Channel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Live() {
		return errors.Wrapf(c.Err(), "send %s", msg.Type)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.conn.WriteMessage(msg); err != nil {
		if c.finish(errors.Wrapf(errors.ErrChannelDropped, "write: %v", err)) {
			_ = c.conn.Close()
		}
		return errors.Wrapf(err, "send %s", msg.Type)
	}
	return nil
}

// Close ends the channel. It is safe to call more than once.
func (c *Channel) Close() error {
	if !c.finish(errors.ErrChannelClosed) {
		return nil
	}
	return c.conn.Close()
}

func (c *Channel) readLoop() {
	defer close(c.events)
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			if c.finish(errors.Wrapf(errors.ErrChannelDropped, "read: %v", err)) {
				log.Info().Str("channel_id", c.id).Err(err).Msg("Realtime channel disconnected")
				_ = c.conn.Close()
			}
			return
		}
		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

// finish records the first terminal cause and reports whether this call was
// the one that ended the channel.
func (c *Channel) finish(cause error) bool {
	ended := false
	c.closeOnce.Do(func() {
		c.lock.Lock()
		c.err = cause
		c.lock.Unlock()
		close(c.done)
		ended = true
	})
	return ended
}
