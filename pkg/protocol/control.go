package protocol

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01
	ControlPong  ControlType = 0x02
	ControlClose ControlType = 0x03
)

// String returns the name of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason says why a session ends.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00
	CloseGoingAway      CloseReason = 0x01
	CloseSessionExpired CloseReason = 0x02
	CloseServerShutdown CloseReason = 0x03
	CloseError          CloseReason = 0x04
)

// String returns the name of the reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseSessionExpired:
		return "SessionExpired"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Control is a keepalive or close message. Ping and Pong carry a
// timestamp in Unix milliseconds; Close carries a reason and a message.
type Control struct {
	Type      ControlType
	Timestamp uint64
	Reason    CloseReason
	Message   string
}

// NewPing returns a ping stamped with ts.
func NewPing(ts uint64) *Control { return &Control{Type: ControlPing, Timestamp: ts} }

// NewPong answers a ping, echoing its timestamp.
func NewPong(ping *Control) *Control { return &Control{Type: ControlPong, Timestamp: ping.Timestamp} }

// NewClose returns a close message.
func NewClose(reason CloseReason, message string) *Control {
	return &Control{Type: ControlClose, Reason: reason, Message: message}
}

// EncodeControl encodes c.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUvarint(c.Timestamp)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
	return e.Bytes()
}

// DecodeControl decodes a control message.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := Control{Type: ControlType(t)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Timestamp, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	case ControlClose:
		r, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		c.Reason = CloseReason(r)
		if c.Message, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnexpectedFrame
	}
	return &c, d.Finish()
}

// Ack tells the engine which edit batches the renderer has applied.
// Window is how many more batches it is willing to receive before the
// next ack; zero means no limit.
type Ack struct {
	LastSeq uint64
	Window  uint64
}

// EncodeAck encodes a.
func EncodeAck(a *Ack) []byte {
	e := NewEncoder()
	e.WriteUvarint(a.LastSeq)
	e.WriteUvarint(a.Window)
	return e.Bytes()
}

// DecodeAck decodes an Ack.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)
	var (
		a   Ack
		err error
	)
	if a.LastSeq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if a.Window, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	return &a, d.Finish()
}
