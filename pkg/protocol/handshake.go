package protocol

import "strconv"

// HandshakeStatus is the engine's answer to a ClientHello.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeSessionExpired  HandshakeStatus = 0x02
	HandshakeServerBusy      HandshakeStatus = 0x03
	HandshakeInvalidFormat   HandshakeStatus = 0x04
	HandshakeInternalError   HandshakeStatus = 0x05
)

// String returns the name of the status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeSessionExpired:
		return "SessionExpired"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Version is the protocol version spoken by this package. Peers with a
// different major version are rejected.
var Version = ProtocolVersion{Major: 1, Minor: 0}

// ProtocolVersion is a major.minor protocol version.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

func (v ProtocolVersion) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}

// Compatible reports whether peer can talk to v.
func (v ProtocolVersion) Compatible(peer ProtocolVersion) bool {
	return v.Major == peer.Major
}

// ClientHello opens a connection. A renderer that lost its connection sends
// the session id and the last edit batch it applied to resume.
type ClientHello struct {
	Version   ProtocolVersion
	SessionID string
	LastSeq   uint64
}

// ServerHello answers a ClientHello. When Status is HandshakeOK the next
// edit batch carries NextSeq.
type ServerHello struct {
	Status    HandshakeStatus
	SessionID string
	NextSeq   uint64
	// ServerTime is the engine's clock in Unix milliseconds.
	ServerTime uint64
}

// EncodeClientHello encodes ch.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteUvarint(ch.LastSeq)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	var (
		ch  ClientHello
		err error
	)
	if ch.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if ch.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ch.LastSeq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	return &ch, d.Finish()
}

// EncodeServerHello encodes sh.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUvarint(sh.NextSeq)
	e.WriteUvarint(sh.ServerTime)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh := ServerHello{Status: HandshakeStatus(status)}
	if sh.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if sh.NextSeq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if sh.ServerTime, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	return &sh, d.Finish()
}
