package wsrpc

import "context"

const DefaultQueueSize = 256

type outboundItem struct {
	pending *pendingRequest
	payload []byte
}

// outboundQueue hands encoded requests from any number of senders to the
// run-loop, in order.
type outboundQueue struct {
	items chan outboundItem
}

func newOutboundQueue(size int) *outboundQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &outboundQueue{items: make(chan outboundItem, size)}
}

// push blocks while the queue is full. It gives up when ctx is done or when
// closed is closed, whichever happens first.
func (q *outboundQueue) push(ctx context.Context, item outboundItem, closed <-chan struct{}) error {
	select {
	case <-closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-closed:
		return ErrConnectionClosed
	}
}

// drain removes every queued item without blocking.
func (q *outboundQueue) drain() []outboundItem {
	var items []outboundItem
	for {
		select {
		case item := <-q.items:
			items = append(items, item)
		default:
			return items
		}
	}
}
