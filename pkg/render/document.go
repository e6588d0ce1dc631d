package render

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// NodeKind is the type of a document node.
type NodeKind uint8

const (
	KindRoot NodeKind = iota
	KindElement
	KindText
	KindPlaceholder
)

// String returns the name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindPlaceholder:
		return "Placeholder"
	default:
		return fmt.Sprintf("NodeKind(%d)", k)
	}
}

// Node is one node of a Document.
type Node struct {
	ID        vdom.ElementID
	Kind      NodeKind
	Tag       string
	Namespace string
	Text      string

	Attrs     map[string]any
	Listeners map[string]bool

	Parent   *Node
	Children []*Node
}

// AttrNames returns the node's attribute names in sorted order.
func (n *Node) AttrNames() []string {
	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListenerNames returns the events the node listens to in sorted order.
func (n *Node) ListenerNames() []string {
	names := make([]string, 0, len(n.Listeners))
	for name := range n.Listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Kind == KindText {
		return n.Text
	}
	var out []byte
	for _, c := range n.Children {
		out = append(out, c.TextContent()...)
	}
	return string(out)
}

func (n *Node) detach() {
	p := n.Parent
	if p == nil {
		return
	}
	if i := slices.Index(p.Children, n); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	n.Parent = nil
}

func (n *Node) index() int {
	if n.Parent == nil {
		return -1
	}
	return slices.Index(n.Parent.Children, n)
}

var (
	// ErrStackUnderflow is returned when an edit pops more nodes than
	// were pushed.
	ErrStackUnderflow = errors.New("render: stack underflow")

	// ErrNotAttached is returned when an insert targets a node without
	// a parent.
	ErrNotAttached = errors.New("render: node not attached")
)

// UnknownElementError is returned for an edit that refers to an id the
// document does not know.
type UnknownElementError struct {
	Op vdom.MutationOp
	ID vdom.ElementID
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("render: %s refers to unknown element %s", e.Op, e.ID)
}

// ApplyError wraps the failure of one edit with its position in the stream.
type ApplyError struct {
	Index int
	Edit  vdom.Mutation
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("render: edit %d %s: %v", e.Index, e.Edit, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Document is an in-memory renderer tree. It is not safe for concurrent use.
type Document struct {
	root  *Node
	nodes map[vdom.ElementID]*Node
	stack []*Node
}

// NewDocument creates an empty document whose root container has id 0.
func NewDocument() *Document {
	root := &Node{Kind: KindRoot}
	return &Document{
		root:  root,
		nodes: map[vdom.ElementID]*Node{0: root},
	}
}

// Root returns the root container.
func (d *Document) Root() *Node { return d.root }

// Node returns the node with the given id.
func (d *Document) Node(id vdom.ElementID) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Len returns the number of live nodes, excluding the root container.
func (d *Document) Len() int { return len(d.nodes) - 1 }

// StackDepth returns the number of nodes left on the stack. It is zero
// after every complete mutation stream.
func (d *Document) StackDepth() int { return len(d.stack) }

// Apply applies edits in order. It stops at the first failing edit.
func (d *Document) Apply(edits []vdom.Mutation) error {
	for i, e := range edits {
		if err := d.apply(e); err != nil {
			return &ApplyError{Index: i, Edit: e, Err: err}
		}
	}
	return nil
}

func (d *Document) apply(e vdom.Mutation) error {
	switch e.Op {
	case vdom.OpCreateElement:
		d.create(&Node{ID: e.ID, Kind: KindElement, Tag: e.Tag, Namespace: e.NS})
	case vdom.OpCreateText:
		d.create(&Node{ID: e.ID, Kind: KindText, Text: e.Text})
	case vdom.OpCreatePlaceholder:
		d.create(&Node{ID: e.ID, Kind: KindPlaceholder})

	case vdom.OpPushRoot:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		d.stack = append(d.stack, n)

	case vdom.OpAppendChildren:
		parent, err := d.lookup(e)
		if err != nil {
			return err
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			n.detach()
			n.Parent = parent
		}
		parent.Children = append(parent.Children, nodes...)

	case vdom.OpInsertAfter, vdom.OpInsertBefore:
		anchor, err := d.lookup(e)
		if err != nil {
			return err
		}
		if anchor.Parent == nil {
			return ErrNotAttached
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			n.detach()
		}
		at := anchor.index()
		if e.Op == vdom.OpInsertAfter {
			at++
		}
		d.insert(anchor.Parent, at, nodes)

	case vdom.OpReplaceWith:
		old, err := d.lookup(e)
		if err != nil {
			return err
		}
		nodes, err := d.pop(e.M)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			n.detach()
		}
		if p := old.Parent; p != nil {
			at := old.index()
			old.detach()
			d.insert(p, at, nodes)
		}
		d.forget(old)

	case vdom.OpRemove:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		n.detach()
		d.forget(n)

	case vdom.OpSetAttribute:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]any)
		}
		n.Attrs[attrKey(e.NS, e.Name)] = e.Value

	case vdom.OpRemoveAttribute:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		delete(n.Attrs, attrKey(e.NS, e.Name))

	case vdom.OpSetText:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		n.Text = e.Text

	case vdom.OpNewEventListener:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		if n.Listeners == nil {
			n.Listeners = make(map[string]bool)
		}
		n.Listeners[e.Name] = true

	case vdom.OpRemoveEventListener:
		n, err := d.lookup(e)
		if err != nil {
			return err
		}
		delete(n.Listeners, e.Name)

	default:
		return fmt.Errorf("render: unsupported op %s", e.Op)
	}
	return nil
}

func (d *Document) create(n *Node) {
	d.nodes[n.ID] = n
	d.stack = append(d.stack, n)
}

func (d *Document) lookup(e vdom.Mutation) (*Node, error) {
	n, ok := d.nodes[e.ID]
	if !ok {
		return nil, &UnknownElementError{Op: e.Op, ID: e.ID}
	}
	return n, nil
}

// pop removes the top m nodes, preserving push order.
func (d *Document) pop(m int) ([]*Node, error) {
	if m > len(d.stack) || m < 0 {
		return nil, ErrStackUnderflow
	}
	at := len(d.stack) - m
	nodes := slices.Clone(d.stack[at:])
	d.stack = d.stack[:at]
	return nodes, nil
}

func (d *Document) insert(parent *Node, at int, nodes []*Node) {
	for _, n := range nodes {
		n.Parent = parent
	}
	parent.Children = slices.Insert(parent.Children, at, nodes...)
}

// forget drops n and its subtree from the id table.
func (d *Document) forget(n *Node) {
	if cur, ok := d.nodes[n.ID]; ok && cur == n {
		delete(d.nodes, n.ID)
	}
	for _, c := range n.Children {
		d.forget(c)
	}
}

func attrKey(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + ":" + name
}
