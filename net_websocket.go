package wsrpc

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const defaultWriteTimeout = 5 * time.Second

type (
	// WebsocketTransport dials with github.com/fasthttp/websocket.
	WebsocketTransport struct {
		dialer       *websocket.Dialer
		errAdapters  ErrorAdapters
		logger       Logger
		writeTimeout time.Duration
	}

	wsConn struct {
		conn         *websocket.Conn
		logger       Logger
		writeTimeout time.Duration
	}
)

func NewWebsocketTransport(
	logger Logger,
	dialer *websocket.Dialer,
	errorAdapters ErrorAdapters,
) *WebsocketTransport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebsocketTransport{
		dialer:       dialer,
		errAdapters:  errorAdapters,
		logger:       logger.WithField("net", "ws_connection"),
		writeTimeout: defaultWriteTimeout,
	}
}

// WithWriteTimeout bounds every frame write that carries no deadline of its own.
func (t *WebsocketTransport) WithWriteTimeout(d time.Duration) *WebsocketTransport {
	if d > 0 {
		t.writeTimeout = d
	}
	return t
}

func (t *WebsocketTransport) Dial(ctx context.Context, p OpenConnectionParams) (TransportConn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err != nil {
		err = t.errAdapters.dialError(resp, err)
		t.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return nil, err
	}

	t.logger.Debugf("success opening connection to %s", p.URL.String())

	w := &wsConn{conn: conn, logger: t.logger, writeTimeout: t.writeTimeout}

	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		if e, ok := err.(net.Error); ok && e.Timeout() {
			return nil
		}
		return err
	})

	return w, nil
}

func (w *wsConn) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	messageType, bts, err := w.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			w.logger.Debugln("<= [CLOSE]")
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())
	}

	// message types from ReadMessage are either binary or text
	switch messageType {
	case websocket.BinaryMessage:
		w.logger.Debugln("<= [BIN]")
		return NewBinaryFrame(bts), nil
	default:
		w.logger.Debugf("<= [DATA] %s", bts)
		return NewTextFrame(bts), nil
	}
}

func (w *wsConn) WriteFrame(ctx context.Context, f Frame) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(w.writeTimeout)
	}
	_ = w.conn.SetWriteDeadline(deadline)

	var err error
	switch f.Type {
	case TextFrame:
		w.logger.Debugf("=> [DATA] %s", f.Data)
		err = w.conn.WriteMessage(websocket.TextMessage, f.Data)
	case BinaryFrame:
		w.logger.Debugln("=> [BIN]")
		err = w.conn.WriteMessage(websocket.BinaryMessage, f.Data)
	default:
		return errors.Errorf("cannot write %s frame", f.Type)
	}

	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			return ErrConnectionClosed
		}
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}
	return nil
}

// Close sends a close frame on a best effort basis and drops the socket.
func (w *wsConn) Close() error {
	w.logger.Debugln("=> [CLOSE]")
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return w.conn.Close()
}

func handleDialError(resp *http.Response, err error) error {
	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
