package wsrpc

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type (
	inboundFrame struct {
		frame Frame
		err   error
	}

	// connection is one Open lifetime of a Connector. Its run-loop is the only
	// goroutine touching the transport writer and the correlation table.
	connection struct {
		session string
		logger  Logger
		codec   Codec

		tc    TransportConn
		queue *outboundQueue
		table *correlationTable

		dispatcher Dispatcher
		// emit calls the registered handlers on the current goroutine.
		emit func(Event)

		// onClosing and onClosed report state transitions to the owner.
		// onClosing reports whether the connection had been Open; one that
		// never was fails silently, without EventDisconnect.
		onClosing func() (wasOpen bool)
		onClosed  func()

		inbound   chan inboundFrame
		closeReq  chan struct{}
		closeOnce sync.Once
		// closing is closed as soon as teardown starts, done once it is over.
		closing chan struct{}
		done    chan struct{}
		alive   atomic.Bool
	}
)

// requestClose asks the run-loop to tear the connection down. Safe to call
// any number of times from any goroutine.
func (c *connection) requestClose() {
	c.closeOnce.Do(func() { close(c.closeReq) })
}

// notify hands e to the dispatcher.
func (c *connection) notify(e Event) {
	c.dispatcher.Dispatch(func() { c.emit(e) })
}

func (c *connection) run() {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.read(gctx) })

	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = errors.Errorf("run-loop fault: %v", r)
			c.logger.Errorf("recovered from %s", cause)
		}
		c.teardown(cause, cancel, g)
	}()

	cause = c.loop(ctx)
}

func (c *connection) loop(ctx context.Context) error {
	for {
		select {
		case <-c.closeReq:
			c.logger.Infoln("closing connection from our side")
			return ErrConnectionClosed
		case in := <-c.inbound:
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					c.logger.Infoln("connection closed by server")
					return ErrConnectionClosed
				}
				c.logger.Errorf("error occurred on read: %s", in.err)
				return in.err
			}
			if !in.frame.Type.IsText() {
				return errors.Wrap(ErrUnexpectedFrame, in.frame.Type.String())
			}
			c.receive(in.frame.Data)
		case item := <-c.queue.items:
			if err := c.write(ctx, item); err != nil {
				return err
			}
		}
	}
}

// read turns blocking reads into channel sends until the transport fails.
func (c *connection) read(ctx context.Context) error {
	for {
		f, err := c.tc.ReadFrame(ctx)
		select {
		case c.inbound <- inboundFrame{frame: f, err: err}:
		case <-ctx.Done():
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// write registers the request and puts it on the wire. Only transport
// failures are returned; they end the loop.
func (c *connection) write(ctx context.Context, item outboundItem) error {
	if err := c.table.prepare(item.pending); err != nil {
		c.logger.Warnf("dropping request: %s", err)
		item.pending.complete(nil, err)
		return nil
	}

	if err := c.tc.WriteFrame(ctx, NewTextFrame(item.payload)); err != nil {
		werr := &WriteError{ID: item.pending.id, Err: err}
		c.table.fail(item.pending.id, werr)
		return werr
	}
	return nil
}

// receive routes every message of an inbound payload. Nothing here is fatal
// to the connection.
func (c *connection) receive(data []byte) {
	msgs, err := c.codec.Decode(data)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Data: data, Err: err}
		}
		c.logger.Warnf("invalid message received: %s", err)
		c.notify(Event{Type: EventInvalidMessage, Err: err})
		return
	}

	for _, m := range msgs {
		if IsSystem(m) {
			c.notify(Event{Type: EventMessage, Message: m})
			continue
		}
		if !c.table.resolve(m.ID(), m) {
			err := &UnknownIDError{ID: m.ID(), Message: m}
			c.logger.Warnf("invalid message received: %s", err)
			c.notify(Event{Type: EventInvalidMessage, Message: m, Err: err})
		}
	}
}

func (c *connection) teardown(cause error, cancel context.CancelFunc, g *errgroup.Group) {
	wasOpen := c.onClosing()
	close(c.closing)
	c.alive.Store(false)

	if err := c.tc.Close(); err != nil {
		c.logger.Debugf("ignoring transport close error: %s", err)
	}
	cancel()
	_ = g.Wait()
	c.tc = nil

	reason := cause
	if reason == nil {
		reason = ErrConnectionClosed
	} else if !errors.Is(reason, ErrConnectionClosed) {
		reason = errors.Wrap(ErrConnectionClosed, reason.Error())
	}

	failed := c.table.failAll(reason)
	for _, item := range c.queue.drain() {
		if item.pending.complete(nil, reason) {
			failed++
		}
	}
	c.logger.Infof("connection closed due to %s, %d pending requests failed", reason, failed)

	if wasOpen {
		fired := make(chan struct{})
		c.dispatcher.Dispatch(func() {
			defer close(fired)
			c.emitDisconnect(reason)
		})
		<-fired
	}

	if d, ok := c.dispatcher.(*serialDispatcher); ok {
		d.close()
	}

	c.onClosed()
	close(c.done)
}

// emitDisconnect runs inside teardown, past the loop's recover.
func (c *connection) emitDisconnect(reason error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("recovered from disconnect handler panic: %v", r)
		}
	}()
	c.emit(Event{Type: EventDisconnect, Err: reason})
}
