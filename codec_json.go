package wsrpc

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

type MessageFactory func() Message

// JSONCodec encodes batches as an array of single-key objects, the key being
// the message name and the value its fields:
//
//	[{"Ok":{"Id":1}},{"Error":{"Id":2,"ErrorMessage":"nope","ErrorCode":1}}]
type JSONCodec struct {
	mu           sync.RWMutex
	factories    map[string]MessageFactory
	allowUnknown bool
}

// NewJSONCodec returns a codec that knows the Ok, Error and Ping messages.
func NewJSONCodec() *JSONCodec {
	c := &JSONCodec{factories: make(map[string]MessageFactory)}
	c.Register("Ok", func() Message { return &Ok{} })
	c.Register("Error", func() Message { return &Error{} })
	c.Register("Ping", func() Message { return &Ping{} })
	return c
}

// Register makes name decodable into the messages built by factory.
func (c *JSONCodec) Register(name string, factory MessageFactory) *JSONCodec {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[name] = factory
	return c
}

// AllowUnknown makes unregistered names decode into *RawMessage instead of
// failing the whole batch.
func (c *JSONCodec) AllowUnknown() *JSONCodec {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.allowUnknown = true
	return c
}

func (c *JSONCodec) Encode(msgs ...Message) ([]byte, error) {
	batch := make([]map[string]Message, 0, len(msgs))
	for _, m := range msgs {
		named, ok := m.(Named)
		if !ok {
			return nil, errors.Errorf("message %T has no name", m)
		}
		batch = append(batch, map[string]Message{named.MessageName(): m})
	}

	bts, err := json.Marshal(batch)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode message batch")
	}
	return bts, nil
}

func (c *JSONCodec) Decode(data []byte) ([]Message, error) {
	var batch []map[string]json.RawMessage
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, &DecodeError{Data: data, Err: err}
	}

	msgs := make([]Message, 0, len(batch))
	for i, entry := range batch {
		if len(entry) != 1 {
			return nil, &DecodeError{
				Data: data,
				Err:  errors.Errorf("entry %d must hold exactly one message, got %d", i, len(entry)),
			}
		}
		for name, body := range entry {
			m, err := c.decodeOne(name, body)
			if err != nil {
				return nil, &DecodeError{Data: data, Err: err}
			}
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (c *JSONCodec) decodeOne(name string, body json.RawMessage) (Message, error) {
	c.mu.RLock()
	factory, found := c.factories[name]
	allowUnknown := c.allowUnknown
	c.mu.RUnlock()

	var m Message
	switch {
	case found:
		m = factory()
	case allowUnknown:
		m = &RawMessage{Name: name}
	default:
		return nil, errors.Errorf("unknown message type %q", name)
	}

	if err := json.Unmarshal(body, m); err != nil {
		return nil, errors.Wrapf(err, "invalid %s message", name)
	}
	return m, nil
}
