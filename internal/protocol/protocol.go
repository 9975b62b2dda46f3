// Package protocol implements the wire format for the facility booking
// service: request/response frame headers and the operation-specific
// payloads carried inside them. All integers are big-endian.
package protocol

// Operation codes carried in a request frame's op_code byte.
const (
	OpQuery            uint8 = 1
	OpBook             uint8 = 2
	OpChange           uint8 = 3
	OpRegisterMonitor  uint8 = 4
	OpA                uint8 = 5
	OpB                uint8 = 6
)

// Invocation-semantic flags carried in a request frame. The flag is
// advisory only — the server's configured policy is authoritative.
const (
	SemanticDefault     uint8 = 0
	SemanticAtMostOnce  uint8 = 1
	SemanticAtLeastOnce uint8 = 2
)

// Response codes carried in a response frame's response_code byte.
const (
	OK            uint8 = 0
	ErrNotFound   uint8 = 1
	ErrConflict   uint8 = 2
	ErrInvalid    uint8 = 3
	ErrInternal   uint8 = 4
)

// Request is a decoded request frame.
type Request struct {
	RequestID uint32
	OpCode    uint8
	Semantic  uint8
	Payload   []byte
}

// Response is a decoded response frame.
type Response struct {
	RequestID uint32
	Code      uint8
	Payload   []byte
}

func OpName(op uint8) string {
	switch op {
	case OpQuery:
		return "QUERY"
	case OpBook:
		return "BOOK"
	case OpChange:
		return "CHANGE"
	case OpRegisterMonitor:
		return "REGISTER_MONITOR"
	case OpA:
		return "OP_A"
	case OpB:
		return "OP_B"
	default:
		return "UNKNOWN"
	}
}
