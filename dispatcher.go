package wsrpc

import "sync"

// Dispatcher decides which goroutine runs event handlers. Dispatch must
// eventually run fn exactly once.
type Dispatcher interface {
	Dispatch(fn func())
}

type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// InlineDispatcher runs handlers on the connection's run-loop. Handlers must
// then neither block nor call Send, since the loop is what would complete it.
// A panicking handler is a run-loop fault and tears the connection down.
var InlineDispatcher Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// serialDispatcher runs handlers one after another on a goroutine of its own,
// in dispatch order. It is the default, one per connection. Dispatch never
// blocks: pending handlers queue up without bound. A panicking handler is
// logged and the next one runs.
type serialDispatcher struct {
	logger Logger

	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSerialDispatcher(logger Logger) *serialDispatcher {
	d := &serialDispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *serialDispatcher) run() {
	defer close(d.done)

	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.pending) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := d.pending[0]
			d.pending[0] = nil
			d.pending = d.pending[1:]
			d.mu.Unlock()

			d.call(fn)
		}
	}
}

func (d *serialDispatcher) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("recovered from event handler panic: %v", r)
		}
	}()
	fn()
}

func (d *serialDispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Dispatch queues fn. It is dropped once the dispatcher is closed.
func (d *serialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	d.signal()
}

// close lets queued handlers finish and stops the goroutine.
func (d *serialDispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.signal()
	<-d.done
}
