package wsrpc

import (
	"context"
	"io"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
)

type (
	// CoderTransport dials with github.com/coder/websocket. Unlike
	// WebsocketTransport it honours contexts on reads and writes.
	CoderTransport struct {
		opts        websocket.DialOptions
		errAdapters ErrorAdapters
		logger      Logger
		readLimit   int64
	}

	coderConn struct {
		conn   *websocket.Conn
		logger Logger
	}
)

// NewCoderTransport copies opts; a nil opts dials with library defaults.
func NewCoderTransport(logger Logger, opts *websocket.DialOptions, errorAdapters ErrorAdapters) *CoderTransport {
	t := &CoderTransport{
		errAdapters: errorAdapters,
		logger:      logger.WithField("net", "coder_connection"),
	}
	if opts != nil {
		t.opts = *opts
	}
	return t
}

// WithReadLimit overrides the library's 32KiB inbound message limit.
func (t *CoderTransport) WithReadLimit(n int64) *CoderTransport {
	t.readLimit = n
	return t
}

func (t *CoderTransport) Dial(ctx context.Context, p OpenConnectionParams) (TransportConn, error) {
	opts := t.opts
	if len(p.Header) > 0 {
		opts.HTTPHeader = p.Header.Clone()
	}

	conn, resp, err := websocket.Dial(ctx, p.URL.String(), &opts)
	if err != nil {
		err = t.errAdapters.dialError(resp, err)
		t.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return nil, err
	}
	if t.readLimit > 0 {
		conn.SetReadLimit(t.readLimit)
	}

	t.logger.Debugf("success opening connection to %s", p.URL.String())
	return &coderConn{conn: conn, logger: t.logger}, nil
}

func (c *coderConn) ReadFrame(ctx context.Context) (Frame, error) {
	typ, bts, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			c.logger.Debugln("<= [CLOSE]")
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())
	}

	if typ == websocket.MessageBinary {
		c.logger.Debugln("<= [BIN]")
		return NewBinaryFrame(bts), nil
	}
	c.logger.Debugf("<= [DATA] %s", bts)
	return NewTextFrame(bts), nil
}

func (c *coderConn) WriteFrame(ctx context.Context, f Frame) error {
	var typ websocket.MessageType
	switch f.Type {
	case TextFrame:
		c.logger.Debugf("=> [DATA] %s", f.Data)
		typ = websocket.MessageText
	case BinaryFrame:
		c.logger.Debugln("=> [BIN]")
		typ = websocket.MessageBinary
	default:
		return errors.Errorf("cannot write %s frame", f.Type)
	}

	if err := c.conn.Write(ctx, typ, f.Data); err != nil {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}
	return nil
}

func (c *coderConn) Close() error {
	c.logger.Debugln("=> [CLOSE]")
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
