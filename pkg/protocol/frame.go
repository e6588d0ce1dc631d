package protocol

import (
	"errors"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the largest payload a frame may carry (16MB).
	MaxPayloadSize = 16 * 1024 * 1024
)

// FrameType identifies the message carried by a frame.
type FrameType uint8

const (
	FrameHello   FrameType = 0x00 // Handshake, both directions
	FrameEvent   FrameType = 0x01 // Renderer → engine event submission
	FrameEdits   FrameType = 0x02 // Engine → renderer mutation batch
	FrameControl FrameType = 0x03 // Ping, pong, close
	FrameAck     FrameType = 0x04 // Renderer acknowledges applied batches
	FrameError   FrameType = 0x05 // Error report
)

// String returns the name of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameEvent:
		return "Event"
	case FrameEdits:
		return "Edits"
	case FrameControl:
		return "Control"
	case FrameAck:
		return "Ack"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags modify how a frame is processed.
type FrameFlags uint8

const (
	// FlagFinal marks the last edit batch of a burst, after which the
	// engine has no pending work.
	FlagFinal FrameFlags = 0x01
	// FlagInitial marks the batch produced by the first build.
	FlagInitial FrameFlags = 0x02
)

// Has reports whether ff contains flag.
func (ff FrameFlags) Has(flag FrameFlags) bool { return ff&flag != 0 }

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrUnexpectedFrame  = errors.New("protocol: unexpected frame type")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one message with its header.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame returns a frame without flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the header followed by the payload.
func (f *Frame) Encode() []byte {
	n := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+n)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(n >> 24)
	buf[3] = byte(n >> 16)
	buf[4] = byte(n >> 8)
	buf[5] = byte(n)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

func parseHeader(h []byte) (FrameType, FrameFlags, int, error) {
	ft := FrameType(h[0])
	if ft > FrameError {
		return 0, 0, 0, ErrInvalidFrameType
	}
	n := int(h[2])<<24 | int(h[3])<<16 | int(h[4])<<8 | int(h[5])
	if n > MaxPayloadSize {
		return 0, 0, 0, ErrFrameTooLarge
	}
	return ft, FrameFlags(h[1]), n, nil
}

// DecodeFrame decodes a single frame that fills data exactly.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft, flags, n, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	switch {
	case len(data) < FrameHeaderSize+n:
		return nil, io.ErrUnexpectedEOF
	case len(data) > FrameHeaderSize+n:
		return nil, ErrTrailingBytes
	}
	payload := make([]byte, n)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var h [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	ft, flags, n, err := parseHeader(h[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
