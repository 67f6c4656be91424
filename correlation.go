package wsrpc

import (
	"context"
	"sync"
	"sync/atomic"
)

// idAllocator hands out request ids. Safe for concurrent use.
type idAllocator struct {
	last atomic.Uint64
}

// next never returns SystemID.
func (a *idAllocator) next() uint64 {
	return a.last.Add(1)
}

// pendingRequest is the completion slot of a request awaiting its reply.
type pendingRequest struct {
	id   uint64
	once sync.Once
	done chan struct{}
	resp Message
	err  error
}

func newPendingRequest(id uint64) *pendingRequest {
	return &pendingRequest{id: id, done: make(chan struct{})}
}

// complete settles the request. Only the first call has effect.
func (p *pendingRequest) complete(resp Message, err error) (settled bool) {
	p.once.Do(func() {
		p.resp, p.err = resp, err
		close(p.done)
		settled = true
	})
	return
}

func (p *pendingRequest) result() (Message, error) {
	return p.resp, p.err
}

// wait blocks until the request settles, ctx is done or gone is closed. A
// request still unsettled once gone is closed was stranded by teardown.
func (p *pendingRequest) wait(ctx context.Context, gone <-chan struct{}) (Message, error) {
	select {
	case <-p.done:
		return p.result()
	case <-gone:
		select {
		case <-p.done:
			return p.result()
		default:
			return nil, ErrConnectionClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// correlationTable maps outstanding request ids to their completion slots.
// It is owned by the run-loop of a single connection and is not safe for
// concurrent use.
type correlationTable struct {
	pending map[uint64]*pendingRequest
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{pending: make(map[uint64]*pendingRequest)}
}

// prepare registers p. It fails if a live request already uses p's id.
func (t *correlationTable) prepare(p *pendingRequest) error {
	if _, found := t.pending[p.id]; found {
		return &DuplicateIDError{ID: p.id}
	}
	t.pending[p.id] = p
	return nil
}

// resolve settles the request waiting on id with resp. A reply implementing
// Failure fails the request with the error it carries. It returns false when
// nothing is waiting on id.
func (t *correlationTable) resolve(id uint64, resp Message) bool {
	p, found := t.pending[id]
	if !found {
		return false
	}
	delete(t.pending, id)

	if f, ok := resp.(Failure); ok {
		p.complete(nil, f.Err())
	} else {
		p.complete(resp, nil)
	}
	return true
}

func (t *correlationTable) fail(id uint64, err error) bool {
	p, found := t.pending[id]
	if !found {
		return false
	}
	delete(t.pending, id)
	p.complete(nil, err)
	return true
}

// failAll fails every outstanding request with reason and empties the table.
func (t *correlationTable) failAll(reason error) int {
	n := len(t.pending)
	for id, p := range t.pending {
		p.complete(nil, reason)
		delete(t.pending, id)
	}
	return n
}

func (t *correlationTable) len() int {
	return len(t.pending)
}
