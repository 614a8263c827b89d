package realtime

import "context"

// Conn is a framed, bidirectional connection. ReadMessage blocks until a
// frame arrives or the connection ends; it is only ever called from one
// goroutine. WriteMessage may be called concurrently with ReadMessage.
type Conn interface {
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	Close() error
}

// Dialer opens a Conn authorized with token. token may be empty, in which
// case the server decides whether to accept an anonymous connection.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, token string) (Conn, error) {
	return f(ctx, token)
}
