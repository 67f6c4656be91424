package wsrpc

import (
	"context"
)

type (
	// Client is the interface that defines the behavior of a request/response
	// client: opening and closing the connection and exchanging correlated
	// messages with the server.
	Client interface {
		// Connect establishes the connection and starts its run-loop. It
		// returns once the connection is open, or a *ConnectionError.
		Connect(ctx context.Context) error
		// Disconnect closes the connection and returns once it is fully torn
		// down and the disconnect event has been delivered.
		Disconnect(ctx context.Context) error
		// Send transmits m and waits for the reply carrying the same id.
		Send(ctx context.Context, m Message) (Message, error)
		// Connected reports whether the connection is open and alive.
		Connected() bool
		// State returns the current lifecycle stage.
		State() State
		// On registers h for events of type t and returns a function
		// removing it.
		On(t EventType, h EventHandler) (off func())
	}
)
