package wsrpc

import "fmt"

type EventType uint8

const (
	// EventMessage carries an unsolicited message (id 0) from the server.
	EventMessage EventType = iota + 1
	// EventInvalidMessage carries a payload that could not be decoded or a
	// reply nobody was waiting for. The connection stays open.
	EventInvalidMessage
	// EventDisconnect fires once per connection, after every pending request
	// has been failed.
	EventDisconnect
)

func (t EventType) String() string {
	switch t {
	case EventMessage:
		return "message"
	case EventInvalidMessage:
		return "invalid_message"
	case EventDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

type Event struct {
	Type    EventType
	Message Message
	// Err is the decode or correlation failure for EventInvalidMessage and
	// the close reason for EventDisconnect.
	Err error
}

type EventHandler func(Event)
