package wsrpc

// Codec turns messages into text payloads and back. Implementations must be
// stateless with respect to the connection and safe for concurrent use.
type Codec interface {
	// Encode serializes one message or a batch into a single payload.
	Encode(msgs ...Message) ([]byte, error)
	// Decode parses a payload into the messages it carries. A payload that
	// is not a well-formed batch yields a *DecodeError.
	Decode(data []byte) ([]Message, error)
}
