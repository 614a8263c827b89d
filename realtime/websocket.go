package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

// WebsocketDialer dials the backend's websocket endpoint. The access token
// travels as the token query parameter and as a bearer Authorization header
// on the handshake.
type WebsocketDialer struct {
	URL    string // ws:// or wss:// endpoint
	Origin string // http(s) origin sent with the handshake
	Header http.Header
}

var _ Dialer = (*WebsocketDialer)(nil)

// Dial opens the websocket.
func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Conn, error) {
	endpoint, err := url.Parse(d.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dial] invalid socket url %q", d.URL)
	}
	if token != "" {
		q := endpoint.Query()
		q.Set("token", token)
		endpoint.RawQuery = q.Encode()
	}

	origin := d.Origin
	if origin == "" {
		origin = originFor(endpoint)
	}
	cfg, err := websocket.NewConfig(endpoint.String(), origin)
	if err != nil {
		return nil, errors.Wrap(err, "[Dial] invalid websocket config")
	}
	cfg.Header = http.Header{}
	for k, v := range d.Header {
		cfg.Header[k] = append([]string(nil), v...)
	}
	if bearer := (credentials.Credential{AccessToken: token}).BearerHeader(); bearer != "" {
		cfg.Header.Set("Authorization", bearer)
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dial] websocket handshake with %s failed", endpoint.Host)
	}
	return &websocketConn{ws: ws}, nil
}

func originFor(u *url.URL) string {
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

type websocketConn struct {
	ws *websocket.Conn
}

// ReadMessage skips frames that are not JSON messages rather than ending the
// connection over one bad frame.
func (c *websocketConn) ReadMessage() (Message, error) {
	for {
		var frame []byte
		if err := websocket.Message.Receive(c.ws, &frame); err != nil {
			return Message{}, err
		}
		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil || msg.Type == "" {
			log.Warn().Int("bytes", len(frame)).Msg("Realtime channel: dropping malformed frame")
			continue
		}
		return msg, nil
	}
}

func (c *websocketConn) WriteMessage(msg Message) error {
	return websocket.JSON.Send(c.ws, msg)
}

func (c *websocketConn) Close() error {
	return c.ws.Close()
}
