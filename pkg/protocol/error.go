package protocol

// ErrorCode classifies an ErrorMessage.
type ErrorCode uint16

const (
	ErrUnknown        ErrorCode = 0x0000
	ErrInvalidFrame   ErrorCode = 0x0001 // Malformed frame or payload
	ErrInvalidEvent   ErrorCode = 0x0002 // Event could not be decoded
	ErrUnknownTarget  ErrorCode = 0x0003 // Event target is not a live element
	ErrSessionExpired ErrorCode = 0x0004
	ErrRateLimited    ErrorCode = 0x0005
	ErrResyncRequired ErrorCode = 0x0006 // Renderer state cannot be resumed
	ErrServerError    ErrorCode = 0x0100
)

// String returns the name of the code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidEvent:
		return "InvalidEvent"
	case ErrUnknownTarget:
		return "UnknownTarget"
	case ErrSessionExpired:
		return "SessionExpired"
	case ErrRateLimited:
		return "RateLimited"
	case ErrResyncRequired:
		return "ResyncRequired"
	case ErrServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// ErrorMessage reports a problem to the peer. A fatal error is followed by
// the connection closing.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// NewError returns a non-fatal error message.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns a fatal error message.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements error.
func (em *ErrorMessage) Error() string {
	s := em.Code.String() + ": " + em.Message
	if em.Fatal {
		return "fatal: " + s
	}
	return s
}

// EncodeErrorMessage encodes em.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em := ErrorMessage{Code: ErrorCode(code)}
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return &em, d.Finish()
}
