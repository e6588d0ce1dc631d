package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// ErrUnknownOp is returned when an edit batch contains an unknown op byte.
var ErrUnknownOp = errors.New("protocol: unknown mutation op")

// EditBatch is the mutation stream produced by one or more engine ticks.
// Seq increases by one per batch sent on a connection.
type EditBatch struct {
	Seq   uint64
	Edits []vdom.Mutation
}

// EncodeEdits encodes b into a new byte slice.
func EncodeEdits(b *EditBatch) []byte {
	e := NewEncoder()
	EncodeEditsTo(e, b)
	return e.Bytes()
}

// EncodeEditsTo appends b to e.
func EncodeEditsTo(e *Encoder, b *EditBatch) {
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(uint64(len(b.Edits)))
	for i := range b.Edits {
		encodeMutation(e, &b.Edits[i])
	}
}

func encodeMutation(e *Encoder, m *vdom.Mutation) {
	e.WriteByte(byte(m.Op))
	e.WriteUvarint(uint64(m.ID))
	switch m.Op {
	case vdom.OpAppendChildren, vdom.OpInsertAfter, vdom.OpInsertBefore, vdom.OpReplaceWith:
		e.WriteUvarint(uint64(m.M))
	case vdom.OpCreateElement:
		e.WriteString(m.Tag)
		e.WriteString(m.NS)
	case vdom.OpCreateText, vdom.OpSetText:
		e.WriteString(m.Text)
	case vdom.OpSetAttribute:
		e.WriteString(m.Name)
		e.WriteString(m.NS)
		e.WriteValue(m.Value)
	case vdom.OpRemoveAttribute:
		e.WriteString(m.Name)
		e.WriteString(m.NS)
	case vdom.OpNewEventListener, vdom.OpRemoveEventListener:
		e.WriteString(m.Name)
	}
}

// DecodeEdits decodes an edit batch that fills data exactly.
func DecodeEdits(data []byte) (*EditBatch, error) {
	d := NewDecoder(data)
	b, err := DecodeEditsFrom(d)
	if err != nil {
		return nil, err
	}
	return b, d.Finish()
}

// DecodeEditsFrom reads an edit batch from d.
func DecodeEditsFrom(d *Decoder) (*EditBatch, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	// Every mutation takes at least two bytes.
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	b := &EditBatch{Seq: seq, Edits: make([]vdom.Mutation, n)}
	for i := range b.Edits {
		if err := decodeMutation(d, &b.Edits[i]); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return b, nil
}

func decodeMutation(d *Decoder, m *vdom.Mutation) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	id, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	m.Op, m.ID = vdom.MutationOp(op), vdom.ElementID(id)

	switch m.Op {
	case vdom.OpAppendChildren, vdom.OpInsertAfter, vdom.OpInsertBefore, vdom.OpReplaceWith:
		n, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		if n > MaxCollectionCount {
			return ErrCollectionTooLarge
		}
		m.M = int(n)
	case vdom.OpCreateElement:
		if m.Tag, err = d.ReadString(); err != nil {
			return err
		}
		m.NS, err = d.ReadString()
	case vdom.OpCreateText, vdom.OpSetText:
		m.Text, err = d.ReadString()
	case vdom.OpSetAttribute:
		if m.Name, err = d.ReadString(); err != nil {
			return err
		}
		if m.NS, err = d.ReadString(); err != nil {
			return err
		}
		m.Value, err = d.ReadValue()
	case vdom.OpRemoveAttribute:
		if m.Name, err = d.ReadString(); err != nil {
			return err
		}
		m.NS, err = d.ReadString()
	case vdom.OpNewEventListener, vdom.OpRemoveEventListener:
		m.Name, err = d.ReadString()
	case vdom.OpCreatePlaceholder, vdom.OpRemove, vdom.OpPushRoot:
	default:
		return fmt.Errorf("%w 0x%02x", ErrUnknownOp, op)
	}
	return err
}
