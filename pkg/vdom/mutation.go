package vdom

import "fmt"

// MutationOp is the type of a Mutation.
type MutationOp uint8

const (
	OpAppendChildren      MutationOp = 0x01 // Pop M nodes and append them to ID
	OpCreateElement       MutationOp = 0x02 // Push a new element
	OpCreateText          MutationOp = 0x03 // Push a new text node
	OpCreatePlaceholder   MutationOp = 0x04 // Push a new empty anchor node
	OpSetAttribute        MutationOp = 0x05 // Set or update an attribute
	OpRemoveAttribute     MutationOp = 0x06 // Remove an attribute
	OpSetText             MutationOp = 0x07 // Update text content
	OpInsertAfter         MutationOp = 0x08 // Pop M nodes and insert them after ID
	OpInsertBefore        MutationOp = 0x09 // Pop M nodes and insert them before ID
	OpReplaceWith         MutationOp = 0x0A // Pop M nodes and replace ID with them
	OpRemove              MutationOp = 0x0B // Remove ID and its subtree
	OpPushRoot            MutationOp = 0x0C // Push an existing node (a move)
	OpNewEventListener    MutationOp = 0x0D // Start listening for Name on ID
	OpRemoveEventListener MutationOp = 0x0E // Stop listening for Name on ID
)

// String returns the string representation of the MutationOp.
func (op MutationOp) String() string {
	switch op {
	case OpAppendChildren:
		return "AppendChildren"
	case OpCreateElement:
		return "CreateElement"
	case OpCreateText:
		return "CreateText"
	case OpCreatePlaceholder:
		return "CreatePlaceholder"
	case OpSetAttribute:
		return "SetAttribute"
	case OpRemoveAttribute:
		return "RemoveAttribute"
	case OpSetText:
		return "SetText"
	case OpInsertAfter:
		return "InsertAfter"
	case OpInsertBefore:
		return "InsertBefore"
	case OpReplaceWith:
		return "ReplaceWith"
	case OpRemove:
		return "Remove"
	case OpPushRoot:
		return "PushRoot"
	case OpNewEventListener:
		return "NewEventListener"
	case OpRemoveEventListener:
		return "RemoveEventListener"
	default:
		return "Unknown"
	}
}

// Mutation is a single renderer edit.
type Mutation struct {
	Op    MutationOp // Operation type
	ID    ElementID  // Target or created node
	M     int        // Stack node count for Append/Insert/Replace
	Tag   string     // Element tag (CreateElement)
	Name  string     // Attribute or event name
	NS    string     // Element or attribute namespace
	Text  string     // Text content (CreateText/SetText)
	Value any        // Attribute value (SetAttribute)
}

// String returns a compact, human-readable form used in logs and tests.
func (m Mutation) String() string {
	switch m.Op {
	case OpAppendChildren, OpInsertAfter, OpInsertBefore, OpReplaceWith:
		return fmt.Sprintf("%s(%s, %d)", m.Op, m.ID, m.M)
	case OpCreateElement:
		return fmt.Sprintf("%s(%s, %q)", m.Op, m.ID, m.Tag)
	case OpCreateText, OpSetText:
		return fmt.Sprintf("%s(%s, %q)", m.Op, m.ID, m.Text)
	case OpSetAttribute:
		return fmt.Sprintf("%s(%s, %q=%v)", m.Op, m.ID, m.Name, m.Value)
	case OpRemoveAttribute, OpNewEventListener, OpRemoveEventListener:
		return fmt.Sprintf("%s(%s, %q)", m.Op, m.ID, m.Name)
	default:
		return fmt.Sprintf("%s(%s)", m.Op, m.ID)
	}
}

// Mutations is an append-only mutation stream. A nil *Mutations discards
// everything written to it; the engine uses that for background rendering.
type Mutations struct {
	Edits []Mutation
}

// Len returns the number of recorded mutations.
func (m *Mutations) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Edits)
}

// Moves returns the number of PushRoot mutations, i.e. existing root
// nodes picked up to be placed elsewhere. A moved item whose template has
// several roots counts once per root, so the keyed diff's minimal move
// count equals Moves only for single-root items.
func (m *Mutations) Moves() int {
	return m.Count(OpPushRoot)
}

// Count returns the number of mutations with the given op.
func (m *Mutations) Count(op MutationOp) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, e := range m.Edits {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Take returns the recorded edits and resets the stream.
func (m *Mutations) Take() []Mutation {
	if m == nil {
		return nil
	}
	edits := m.Edits
	m.Edits = nil
	return edits
}

func (m *Mutations) push(mu Mutation) {
	if m == nil {
		return
	}
	m.Edits = append(m.Edits, mu)
}

func (m *Mutations) appendChildren(id ElementID, n int) {
	m.push(Mutation{Op: OpAppendChildren, ID: id, M: n})
}

func (m *Mutations) createElement(id ElementID, tag, ns string) {
	m.push(Mutation{Op: OpCreateElement, ID: id, Tag: tag, NS: ns})
}

func (m *Mutations) createText(id ElementID, text string) {
	m.push(Mutation{Op: OpCreateText, ID: id, Text: text})
}

func (m *Mutations) createPlaceholder(id ElementID) {
	m.push(Mutation{Op: OpCreatePlaceholder, ID: id})
}

func (m *Mutations) setAttribute(id ElementID, name, ns string, value any) {
	m.push(Mutation{Op: OpSetAttribute, ID: id, Name: name, NS: ns, Value: value})
}

func (m *Mutations) removeAttribute(id ElementID, name, ns string) {
	m.push(Mutation{Op: OpRemoveAttribute, ID: id, Name: name, NS: ns})
}

func (m *Mutations) setText(id ElementID, text string) {
	m.push(Mutation{Op: OpSetText, ID: id, Text: text})
}

func (m *Mutations) insertAfter(id ElementID, n int) {
	m.push(Mutation{Op: OpInsertAfter, ID: id, M: n})
}

func (m *Mutations) insertBefore(id ElementID, n int) {
	m.push(Mutation{Op: OpInsertBefore, ID: id, M: n})
}

func (m *Mutations) replaceWith(id ElementID, n int) {
	m.push(Mutation{Op: OpReplaceWith, ID: id, M: n})
}

func (m *Mutations) remove(id ElementID) {
	m.push(Mutation{Op: OpRemove, ID: id})
}

func (m *Mutations) pushRoot(id ElementID) {
	m.push(Mutation{Op: OpPushRoot, ID: id})
}

func (m *Mutations) newEventListener(id ElementID, name string) {
	m.push(Mutation{Op: OpNewEventListener, ID: id, Name: name})
}

func (m *Mutations) removeEventListener(id ElementID, name string) {
	m.push(Mutation{Op: OpRemoveEventListener, ID: id, Name: name})
}
