package protocol

import "github.com/vango-dev/vcore/pkg/vdom"

// Event is an event raised by the renderer on one of the engine's nodes.
type Event struct {
	// Seq increases by one per event sent on a connection.
	Seq     uint64
	Name    string
	Target  vdom.ElementID
	Bubbles bool
	// Data is event specific: the input value, key, pointer coordinates,
	// form fields. See Encoder.WriteValue for the supported types.
	Data any
}

// EncodeEvent encodes ev into a new byte slice.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo appends ev to e.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteString(ev.Name)
	e.WriteUvarint(uint64(ev.Target))
	e.WriteBool(ev.Bubbles)
	e.WriteValue(ev.Data)
}

// DecodeEvent decodes an event that fills data exactly.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev, err := DecodeEventFrom(d)
	if err != nil {
		return nil, err
	}
	return ev, d.Finish()
}

// DecodeEventFrom reads an event from d.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	var (
		ev  Event
		err error
	)
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	target, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	ev.Target = vdom.ElementID(target)
	if ev.Bubbles, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if ev.Data, err = d.ReadValue(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Bubbling reports whether events named name bubble by default, following
// the DOM. Renderers without their own table can use it to fill
// Event.Bubbles.
func Bubbling(name string) bool {
	switch name {
	case "focus", "blur", "load", "unload", "scroll", "mouseenter", "mouseleave",
		"pointerenter", "pointerleave", "error", "abort", "toggle":
		return false
	}
	return true
}
