package wsrpc

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// SystemID is the id carried by messages that do not answer any request.
const SystemID uint64 = 0

type (
	// Message is a protocol payload carrying a correlation id.
	Message interface {
		ID() uint64
		SetID(id uint64)
	}

	// Named messages know the key under which JSONCodec encodes them.
	Named interface {
		MessageName() string
	}

	// Failure is implemented by replies that report a server side error for
	// the request they answer.
	Failure interface {
		Err() error
	}
)

// Header carries the correlation id. Embed it to implement Message.
type Header struct {
	Id uint64 `json:"Id"`
}

func (h *Header) ID() uint64 { return h.Id }

func (h *Header) SetID(id uint64) { h.Id = id }

// IsSystem reports whether m is unsolicited.
func IsSystem(m Message) bool {
	return m.ID() == SystemID
}

type Ok struct {
	Header
}

func (*Ok) MessageName() string { return "Ok" }

type Ping struct {
	Header
}

func (*Ping) MessageName() string { return "Ping" }

// Error is the server's negative reply.
type Error struct {
	Header
	ErrorMessage string `json:"ErrorMessage"`
	ErrorCode    int    `json:"ErrorCode"`
}

func (*Error) MessageName() string { return "Error" }

func (m *Error) Err() error {
	return &ServerError{ID: m.Id, Code: m.ErrorCode, Message: m.ErrorMessage}
}

// RawMessage holds a message of a type the codec has no registration for.
// Fields keeps every field but Id undecoded.
type RawMessage struct {
	Header
	Name   string
	Fields map[string]json.RawMessage
}

func (m *RawMessage) MessageName() string { return m.Name }

func (m *RawMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["Id"] = json.RawMessage(fmt.Sprintf("%d", m.Id))
	return json.Marshal(out)
}

func (m *RawMessage) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["Id"]; ok {
		if err := json.Unmarshal(raw, &m.Id); err != nil {
			return errors.Wrap(err, "invalid Id")
		}
		delete(fields, "Id")
	}
	m.Fields = fields
	return nil
}

func (m *RawMessage) String() string {
	return fmt.Sprintf("Message{name=%s,id=%d}", m.Name, m.Id)
}
