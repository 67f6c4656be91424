package wsrpc

import (
	"context"
	"net/http"
	"net/url"
)

type (
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	// Transport opens byte-stream connections to a server.
	Transport interface {
		// Dial blocks until the websocket handshake completes or fails.
		Dial(ctx context.Context, p OpenConnectionParams) (TransportConn, error)
	}

	// TransportConn is a live connection. ReadFrame is only ever called from
	// one goroutine and WriteFrame from another; Close may be called
	// concurrently with both and must unblock a pending ReadFrame.
	TransportConn interface {
		// ReadFrame returns io.EOF once the peer closed the stream normally.
		ReadFrame(ctx context.Context) (Frame, error)
		WriteFrame(ctx context.Context, f Frame) error
		Close() error
	}

	TransportFunc func(ctx context.Context, p OpenConnectionParams) (TransportConn, error)

	// ErrAdapter maps the outcome of a failed websocket handshake to an error.
	ErrAdapter func(*http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}
)

func (f TransportFunc) Dial(ctx context.Context, p OpenConnectionParams) (TransportConn, error) {
	return f(ctx, p)
}

func (a ErrorAdapters) dialError(resp *http.Response, err error) error {
	if a.OnDial != nil {
		return a.OnDial(resp, err)
	}
	return handleDialError(resp, err)
}
