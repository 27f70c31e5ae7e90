package realtime

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"
)

// Transport is a message-oriented full-duplex endpoint. The production
// implementation is a WebSocket; tests substitute an in-memory fake.
type Transport interface {
	// Read blocks until the next inbound frame or a terminal error. After a
	// terminal error the transport is unusable.
	Read(ctx context.Context) ([]byte, error)
	// Write sends one text frame.
	Write(ctx context.Context, data []byte) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens a Transport to the given URL.
type Dialer func(ctx context.Context, url string) (Transport, error)

// WebSocketDialer dials a WebSocket endpoint carrying UTF-8 JSON text frames.
func WebSocketDialer(ctx context.Context, url string) (Transport, error) {
	return dialWebSocket(ctx, url, "")
}

// TokenDialer returns a Dialer that presents token as a bearer credential on
// the WebSocket handshake. An empty token dials like WebSocketDialer.
func TokenDialer(token string) Dialer {
	return func(ctx context.Context, url string) (Transport, error) {
		return dialWebSocket(ctx, url, token)
	}
}

func dialWebSocket(ctx context.Context, url, token string) (Transport, error) {
	var opts *websocket.DialOptions
	if token != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
		}
	}
	ws, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return &wsTransport{ws: ws}, nil
}

type wsTransport struct {
	ws *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.ws.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.ws.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.ws.Close(websocket.StatusNormalClosure, "")
}
