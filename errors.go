package wsrpc

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrAlreadyConnected = errors.New("connector is already connected")
	ErrNotConnected     = errors.New("connector is not connected")
	ErrDuplicateID      = errors.New("request id is already pending")
	ErrUnknownID        = errors.New("reply does not match any pending request")
	ErrUnexpectedFrame  = errors.New("unexpected non-text frame")
)

// ConnectionError is returned by Connect when the transport or the protocol
// handshake could not be established.
type ConnectionError struct {
	err error
	url url.URL
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s to %s", e.err, e.url.String())
}

func (e *ConnectionError) Unwrap() error { return e.err }

// URL is the address the connector tried to reach.
func (e *ConnectionError) URL() url.URL { return e.url }

func wrapConnectionError(err error, u url.URL) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{err: err, url: u}
}

// DecodeError reports an inbound payload that is not a well-formed batch.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode message batch: %s", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type DuplicateIDError struct {
	ID uint64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("request id %d is already pending", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// UnknownIDError is reported through EventInvalidMessage when a reply carries
// an id no request is waiting for.
type UnknownIDError struct {
	ID      uint64
	Message Message
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("message with non-matching id %d received", e.ID)
}

func (e *UnknownIDError) Unwrap() error { return ErrUnknownID }

// WriteError fails the request whose frame could not be written. The request
// never reached the server.
type WriteError struct {
	ID  uint64
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write request %d: %s", e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ServerError is the error carried by an Error reply from the server.
type ServerError struct {
	ID      uint64
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d on request %d: %s", e.Code, e.ID, e.Message)
}

// IsServerError reports whether err carries an error reply from the server.
func IsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
