package realtimefake

import (
	"context"
	"io"
	"sync"

	"github.com/jrsteele09/nccc-portal-client/realtime"
)

// FakeConn is an in-memory realtime.Conn. The test plays the server: Push
// delivers an inbound frame, Drop ends the connection from the server side.
type FakeConn struct {
	inbound   chan realtime.Message
	closed    chan struct{}
	closeOnce sync.Once

	lock     sync.RWMutex
	sent     []realtime.Message
	writeErr error
}

var _ realtime.Conn = (*FakeConn)(nil)

// NewFakeConn creates an open FakeConn.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		inbound: make(chan realtime.Message),
		closed:  make(chan struct{}),
	}
}

// ReadMessage blocks until a pushed frame arrives or the connection closes.
func (c *FakeConn) ReadMessage() (realtime.Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.closed:
		return realtime.Message{}, io.EOF
	}
}

// WriteMessage records msg.
func (c *FakeConn) WriteMessage(msg realtime.Message) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if c.IsClosed() {
		return io.ErrClosedPipe
	}
	c.sent = append(c.sent, msg)
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (c *FakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Push delivers msg to the reader. It reports false when the connection
// closed before the frame was taken.
func (c *FakeConn) Push(msg realtime.Message) bool {
	select {
	case c.inbound <- msg:
		return true
	case <-c.closed:
		return false
	}
}

// Drop ends the connection as if the server went away.
func (c *FakeConn) Drop() {
	_ = c.Close()
}

// FailWrites makes every later WriteMessage return err.
func (c *FakeConn) FailWrites(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.writeErr = err
}

// IsClosed reports whether Close or Drop was called.
func (c *FakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Sent returns a copy of the frames written so far.
func (c *FakeConn) Sent() []realtime.Message {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return append([]realtime.Message(nil), c.sent...)
}

// FakeDialer hands out a new FakeConn per Dial and remembers the token each
// was dialed with.
type FakeDialer struct {
	lock   sync.RWMutex
	conns  []*FakeConn
	tokens []string
	err    error
}

var _ realtime.Dialer = (*FakeDialer)(nil)

// NewFakeDialer creates a FakeDialer.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{}
}

// Dial returns a fresh FakeConn, or the error set with FailDials.
func (d *FakeDialer) Dial(ctx context.Context, token string) (realtime.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := NewFakeConn()
	d.conns = append(d.conns, conn)
	d.tokens = append(d.tokens, token)
	return conn, nil
}

// FailDials makes later dials fail with err; nil restores success.
func (d *FakeDialer) FailDials(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.err = err
}

// Dials returns how many connections were opened.
func (d *FakeDialer) Dials() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.conns)
}

// Conn returns the i-th dialed connection.
func (d *FakeDialer) Conn(i int) *FakeConn {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.conns[i]
}

// Last returns the most recent connection, nil before the first dial.
func (d *FakeDialer) Last() *FakeConn {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Tokens returns the tokens used for each dial, in order.
func (d *FakeDialer) Tokens() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return append([]string(nil), d.tokens...)
}
