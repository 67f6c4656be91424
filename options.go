package wsrpc

import (
	"context"
	"time"
)

type (
	// Handshake runs once the transport is up and before Connect returns.
	// Sends through c are allowed while the state is still Connecting, and
	// Connected reports false until it succeeds. When it fails the
	// connection is torn down without EventDisconnect and Connect returns a
	// *ConnectionError.
	Handshake func(ctx context.Context, c Client) error

	// KeepAliveMessageFactory builds the request sent on every keep-alive tick.
	KeepAliveMessageFactory func() Message

	Option func(*options)

	options struct {
		logger            Logger
		codec             Codec
		transport         Transport
		queueSize         int
		dispatcher        Dispatcher
		handshake         Handshake
		keepAliveInterval time.Duration
		keepAliveFactory  KeepAliveMessageFactory
		handlers          map[EventType][]EventHandler
	}
)

func defaultOptions() options {
	return options{
		queueSize: DefaultQueueSize,
		handlers:  make(map[EventType][]EventHandler),
	}
}

func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec replaces the default JSONCodec.
func WithCodec(codec Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithTransport replaces the default fasthttp websocket transport.
func WithTransport(t Transport) Option {
	return func(o *options) {
		if t != nil {
			o.transport = t
		}
	}
}

// WithQueueSize bounds how many encoded requests may wait for the run-loop
// before Send blocks.
func WithQueueSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// WithDispatcher sets where event handlers run. By default each connection
// delivers events on a goroutine of its own, in order.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

func WithHandshake(h Handshake) Option {
	return func(o *options) {
		o.handshake = h
	}
}

// WithKeepAlive sends factory() as a request every interval while the
// connection is open. A nil factory sends Ping.
func WithKeepAlive(interval time.Duration, factory KeepAliveMessageFactory) Option {
	return func(o *options) {
		if factory == nil {
			factory = func() Message { return &Ping{} }
		}
		o.keepAliveInterval = interval
		o.keepAliveFactory = factory
	}
}

func WithEventHandler(t EventType, h EventHandler) Option {
	return func(o *options) {
		o.handlers[t] = append(o.handlers[t], h)
	}
}

func WithMessageHandler(h func(Message)) Option {
	return WithEventHandler(EventMessage, func(e Event) { h(e.Message) })
}

func WithInvalidMessageHandler(h func(error)) Option {
	return WithEventHandler(EventInvalidMessage, func(e Event) { h(e.Err) })
}

func WithDisconnectHandler(h func(reason error)) Option {
	return WithEventHandler(EventDisconnect, func(e Event) { h(e.Err) })
}
