package wsrpc

import (
	"fmt"
	"sync/atomic"
)

// State is the lifecycle stage of a Connector's connection.
//
//	Idle -> Connecting -> Open -> Closing -> Closed
//	           |                               ^
//	           +-------------------------------+  (dial or handshake failure)
//
// Closed behaves like Idle for Connect: a new connection may be started.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// canConnect reports whether Connect may start from s.
func (s State) canConnect() bool {
	return s == StateIdle || s == StateClosed
}

type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) load() State {
	return State(m.v.Load())
}

func (m *stateMachine) store(s State) {
	m.v.Store(int32(s))
}

// transition moves from one of the states in from to "to". It reports false,
// leaving the state untouched, when the current state is not in from.
func (m *stateMachine) transition(to State, from ...State) bool {
	for {
		cur := m.v.Load()
		allowed := false
		for _, f := range from {
			if State(cur) == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
		if m.v.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}
