package wsrpc

import "fmt"

// FrameType mirrors the websocket opcode of a frame.
type FrameType byte

const (
	TextFrame   FrameType = 1
	BinaryFrame FrameType = 2
	CloseFrame  FrameType = 8
	PingFrame   FrameType = 9
	PongFrame   FrameType = 10
)

func (t FrameType) Is(other FrameType) bool {
	return t == other
}

func (t FrameType) IsText() bool {
	return t.Is(TextFrame)
}

func (t FrameType) String() string {
	switch t {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	case CloseFrame:
		return "close"
	case PingFrame:
		return "ping"
	case PongFrame:
		return "pong"
	default:
		return fmt.Sprintf("frame(%d)", byte(t))
	}
}

// Frame is a single unit read from or written to a transport.
type Frame struct {
	Type FrameType
	Data []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{type=%s,data=%s}", f.Type, f.Data)
}

func NewTextFrame(data []byte) Frame {
	return Frame{Type: TextFrame, Data: data}
}

func NewBinaryFrame(data []byte) Frame {
	return Frame{Type: BinaryFrame, Data: data}
}
