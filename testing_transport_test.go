package wsrpc

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

// pipeConn is an in-memory TransportConn. The test plays the server through
// push/pushErr and next.
type pipeConn struct {
	toClient   chan inboundFrame
	fromClient chan Frame
	closed     chan struct{}
	closeOnce  sync.Once
	closeCount atomic.Int32

	// WriteFunc, when set, runs before every write and may fail it.
	WriteFunc func(Frame) error
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		toClient:   make(chan inboundFrame, 64),
		fromClient: make(chan Frame, 1024),
		closed:     make(chan struct{}),
	}
}

func (p *pipeConn) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case in := <-p.toClient:
		return in.frame, in.err
	case <-p.closed:
		return Frame{}, ErrConnectionClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (p *pipeConn) WriteFrame(_ context.Context, f Frame) error {
	if p.WriteFunc != nil {
		if err := p.WriteFunc(f); err != nil {
			return err
		}
	}
	select {
	case p.fromClient <- f:
		return nil
	case <-p.closed:
		return ErrConnectionClosed
	}
}

func (p *pipeConn) Close() error {
	p.closeCount.Add(1)
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) push(payload string) {
	p.toClient <- inboundFrame{frame: NewTextFrame([]byte(payload))}
}

func (p *pipeConn) pushFrame(f Frame) {
	p.toClient <- inboundFrame{frame: f}
}

func (p *pipeConn) pushErr(err error) {
	p.toClient <- inboundFrame{err: err}
}

// next returns the next frame written by the client.
func (p *pipeConn) next(t *testing.T) Frame {
	t.Helper()

	select {
	case f := <-p.fromClient:
		return f
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the client to write a frame")
		return Frame{}
	}
}

// nextMessage decodes the next written frame, which must hold one message.
func (p *pipeConn) nextMessage(t *testing.T, codec Codec) Message {
	t.Helper()

	msgs, err := codec.Decode(p.next(t).Data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}

// fakeTransport hands out a fresh pipeConn on every dial.
type fakeTransport struct {
	mu    sync.Mutex
	pipes []*pipeConn
	// DialFunc, when set, replaces the default dial.
	DialFunc func(ctx context.Context, p OpenConnectionParams) (TransportConn, error)
}

func (f *fakeTransport) Dial(ctx context.Context, p OpenConnectionParams) (TransportConn, error) {
	if f.DialFunc != nil {
		return f.DialFunc(ctx, p)
	}

	pc := newPipeConn()
	f.mu.Lock()
	f.pipes = append(f.pipes, pc)
	f.mu.Unlock()
	return pc, nil
}

func (f *fakeTransport) last() *pipeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipes[len(f.pipes)-1]
}

func (f *fakeTransport) dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pipes)
}

type echo struct {
	Header
	Text string `json:"Text"`
}

func (*echo) MessageName() string { return "Echo" }

func newTestCodec() *JSONCodec {
	return NewJSONCodec().Register("Echo", func() Message { return &echo{} })
}

var testURL = url.URL{Scheme: "ws", Host: "buttplug.test:12345"}

func newTestConnector(t *testing.T, transport Transport, opts ...Option) *Connector {
	t.Helper()

	base := []Option{
		WithTransport(transport),
		WithCodec(newTestCodec()),
		WithLogger(NopLogger()),
	}
	c := NewConnector(
		NewOpenConnectionParamsRepo(NopLogger(), StaticOpenConnectionParams(testURL, nil)),
		append(base, opts...)...,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = c.Disconnect(ctx)
	})
	return c
}

// connectTest returns an open connector and the server end of its pipe.
func connectTest(t *testing.T, opts ...Option) (*Connector, *pipeConn) {
	t.Helper()

	ft := &fakeTransport{}
	c := newTestConnector(t, ft, opts...)
	require.NoError(t, c.Connect(context.Background()))
	return c, ft.last()
}

func reply(t *testing.T, msgs ...Message) string {
	t.Helper()

	bts, err := newTestCodec().Encode(msgs...)
	require.NoError(t, err)
	return string(bts)
}

func rawBatch(name string, id uint64, fields map[string]any) string {
	body := map[string]any{"Id": id}
	for k, v := range fields {
		body[k] = v
	}
	bts, _ := json.Marshal([]map[string]any{{name: body}})
	return string(bts)
}

func contextWithTimeout(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

type sendResult struct {
	msg Message
	err error
}

func sendAsync(c *Connector, ctx context.Context, m Message) <-chan sendResult {
	out := make(chan sendResult, 1)
	go func() {
		msg, err := c.Send(ctx, m)
		out <- sendResult{msg: msg, err: err}
	}()
	return out
}

func awaitResult(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for Send to return")
		return sendResult{}
	}
}

// eventRecorder collects events from a connector.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	signal chan Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{signal: make(chan Event, 64)}
}

func (r *eventRecorder) handler(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.signal <- e
}

func (r *eventRecorder) options() []Option {
	return []Option{
		WithEventHandler(EventMessage, r.handler),
		WithEventHandler(EventInvalidMessage, r.handler),
		WithEventHandler(EventDisconnect, r.handler),
	}
}

func (r *eventRecorder) wait(t *testing.T) Event {
	t.Helper()

	select {
	case e := <-r.signal:
		return e
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for an event")
		return Event{}
	}
}

func (r *eventRecorder) count(et EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == et {
			n++
		}
	}
	return n
}

type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Encode(msgs ...Message) ([]byte, error) {
	args := m.Called(msgs)
	bts, _ := args.Get(0).([]byte)
	return bts, args.Error(1)
}

func (m *mockCodec) Decode(data []byte) ([]Message, error) {
	args := m.Called(data)
	msgs, _ := args.Get(0).([]Message)
	return msgs, args.Error(1)
}
