package wsrpc

import (
	"context"
	"net/url"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// Connector is a Client multiplexing many concurrent requests over a single
// websocket. Each request is tagged with an id and its reply is routed back to
// the caller that sent it, whatever order replies arrive in. Messages with id
// 0 are unsolicited and delivered as EventMessage.
type Connector struct {
	opts      options
	repo      OpenConnectionParamsRepo
	logger    Logger
	codec     Codec
	transport Transport
	emitter   *EventEmitterCallback[EventType, Event]

	ids   idAllocator
	state stateMachine

	mu   sync.RWMutex
	conn *connection
}

var _ Client = (*Connector)(nil)

func NewConnector(repo OpenConnectionParamsRepo, opts ...Option) *Connector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = NewLogrusLogger(nil)
	}
	if o.codec == nil {
		o.codec = NewJSONCodec()
	}
	if o.transport == nil {
		o.transport = NewWebsocketTransport(o.logger, nil, ErrorAdapters{})
	}
	if repo.logger == nil {
		repo.logger = o.logger
	}

	c := &Connector{
		opts:      o,
		repo:      repo,
		logger:    o.logger.WithField("type", "connector"),
		codec:     o.codec,
		transport: o.transport,
		emitter:   NewEventEmitter[EventType, Event](),
	}
	for t, handlers := range o.handlers {
		for _, h := range handlers {
			c.emitter.On(t, h)
		}
	}
	return c
}

// Dial creates a Connector for rawURL and connects it.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Connector, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid url %q", rawURL)
	}

	c := NewConnector(NewOpenConnectionParamsRepo(nil, StaticOpenConnectionParams(*u, nil)), opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connector) Connect(ctx context.Context) error {
	if !c.state.transition(StateConnecting, StateIdle, StateClosed) {
		return errors.Wrap(ErrAlreadyConnected, c.state.load().String())
	}

	params, err := c.repo.Get(ctx)
	if err != nil {
		c.state.store(StateClosed)
		return wrapConnectionError(errors.Wrap(ErrCannotConnect, err.Error()), params.URL)
	}

	tc, err := c.transport.Dial(ctx, params)
	if err != nil {
		c.state.store(StateClosed)
		return wrapConnectionError(err, params.URL)
	}

	conn := c.newConnection(tc)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	conn.alive.Store(true)
	go conn.run()

	if c.opts.handshake != nil {
		if err := c.opts.handshake(ctx, &handshakeClient{Connector: c, conn: conn}); err != nil {
			conn.logger.Errorf("handshake failed: %s", err)
			conn.requestClose()
			<-conn.done
			return wrapConnectionError(errors.Wrap(err, "handshake failed"), params.URL)
		}
	}

	// The server may have hung up during the handshake.
	if !c.state.transition(StateOpen, StateConnecting) {
		<-conn.done
		return wrapConnectionError(ErrConnectionClosed, params.URL)
	}

	conn.logger.Infof("connected to %s", params.URL.String())

	if c.opts.keepAliveInterval > 0 {
		go c.keepAlive(conn)
	}

	return nil
}

// handshakeClient lets the handshake send on a connection that is not Open
// yet.
type handshakeClient struct {
	*Connector
	conn *connection
}

func (h *handshakeClient) Send(ctx context.Context, m Message) (Message, error) {
	if m == nil {
		return nil, errors.New("cannot send a nil message")
	}
	return h.sendOn(ctx, h.conn, m)
}

func (c *Connector) newConnection(tc TransportConn) *connection {
	session := ulid.Make().String()

	conn := &connection{
		session:  session,
		logger:   c.logger.WithField("session", session),
		codec:    c.codec,
		tc:       tc,
		queue:    newOutboundQueue(c.opts.queueSize),
		table:    newCorrelationTable(),
		inbound:  make(chan inboundFrame),
		closeReq: make(chan struct{}),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		emit: func(e Event) {
			c.emitter.Emit(e.Type, e)
		},
		onClosing: func() bool {
			if c.state.transition(StateClosing, StateOpen) {
				return true
			}
			c.state.transition(StateClosing, StateConnecting)
			return false
		},
		onClosed: func() {
			c.state.store(StateClosed)
		},
	}

	conn.dispatcher = c.opts.dispatcher
	if conn.dispatcher == nil {
		conn.dispatcher = newSerialDispatcher(conn.logger.WithField("subtype", "dispatcher"))
	}
	return conn
}

// Disconnect closes the connection, if any, and waits until its pending
// requests have failed and EventDisconnect handlers have run. It must not be
// called from an event handler, which would wait on itself. Calling it while
// Connect is in flight is not supported.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return nil
	}

	conn.requestClose()

	select {
	case <-conn.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send assigns m an id unless it carries one, queues it and waits for the
// reply with the same id. A full queue blocks the caller. Cancelling ctx only
// stops the wait: a queued request is still written and its reply discarded.
//
// Errors: ErrNotConnected when not open, *DuplicateIDError when m's id is
// already pending, *ServerError when the server replied with an error,
// *WriteError when m could not be written, ErrConnectionClosed when the
// connection went away first.
func (c *Connector) Send(ctx context.Context, m Message) (Message, error) {
	if m == nil {
		return nil, errors.New("cannot send a nil message")
	}

	conn, err := c.openConnection()
	if err != nil {
		return nil, err
	}
	return c.sendOn(ctx, conn, m)
}

func (c *Connector) sendOn(ctx context.Context, conn *connection, m Message) (Message, error) {
	if m.ID() == SystemID {
		m.SetID(c.ids.next())
	}

	payload, err := c.codec.Encode(m)
	if err != nil {
		return nil, err
	}

	p := newPendingRequest(m.ID())
	if err := conn.queue.push(ctx, outboundItem{pending: p, payload: payload}, conn.closing); err != nil {
		return nil, err
	}

	return p.wait(ctx, conn.done)
}

func (c *Connector) openConnection() (*connection, error) {
	if c.state.load() != StateOpen {
		return nil, ErrNotConnected
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return nil, ErrNotConnected
	}
	select {
	case <-conn.closing:
		return nil, ErrNotConnected
	default:
		return conn, nil
	}
}

func (c *Connector) Connected() bool {
	if c.state.load() != StateOpen {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn != nil && c.conn.alive.Load()
}

func (c *Connector) State() State {
	return c.state.load()
}

func (c *Connector) On(t EventType, h EventHandler) (off func()) {
	return c.emitter.On(t, h)
}
