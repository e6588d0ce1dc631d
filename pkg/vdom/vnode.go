package vdom

import (
	"reflect"

	verrors "github.com/vango-dev/vcore/internal/errors"
)

// VNode is one rendered instance of a Template.
//
// DynamicNodes holds one value per node slot of the template and
// DynamicAttrs one attribute group per attribute slot. A VNode may be
// mounted in at most one place at a time.
type VNode struct {
	Key          string
	Template     *Template
	DynamicNodes []DynamicNode
	DynamicAttrs [][]Attribute

	mount *mount
}

// NewVNode instantiates t. It panics if the number of dynamic values does
// not match the template's slot tables. Empty fragments are replaced by
// placeholders.
func NewVNode(key string, t *Template, nodes []DynamicNode, attrs [][]Attribute) *VNode {
	if len(nodes) != len(t.NodePaths) {
		panic(verrors.New("E102").WithDetailf("template %q declares %d dynamic nodes, got %d",
			t.Name, len(t.NodePaths), len(nodes)))
	}
	if len(attrs) != len(t.AttrPaths) {
		panic(verrors.New("E102").WithDetailf("template %q declares %d attribute slots, got %d",
			t.Name, len(t.AttrPaths), len(attrs)))
	}
	v := &VNode{Key: key, Template: t, DynamicNodes: nodes, DynamicAttrs: attrs}
	v.normalize()
	return v
}

// Static instantiates a template that has no dynamic slots.
func Static(t *Template) *VNode {
	return NewVNode("", t, nil, nil)
}

// WithKey sets the reconciliation key and returns v.
func (v *VNode) WithKey(key string) *VNode {
	v.Key = key
	return v
}

// Mounted reports whether v currently has renderer nodes.
func (v *VNode) Mounted() bool {
	return v != nil && v.mount != nil && !v.mount.detached
}

// RootIDs returns one element id per template root once v is mounted.
// For a dynamic root the id of the first node it rendered is reported.
func (v *VNode) RootIDs() []ElementID {
	if v.mount == nil {
		return nil
	}
	ids := make([]ElementID, len(v.Template.Roots))
	for i := range ids {
		ids[i] = v.mount.rootFirst(i)
	}
	return ids
}

func (v *VNode) normalize() {
	for i, n := range v.DynamicNodes {
		switch n := n.(type) {
		case Fragment:
			if len(n) == 0 {
				v.DynamicNodes[i] = Placeholder{}
			}
		case nil:
			v.DynamicNodes[i] = Placeholder{}
		}
	}
}

// DynamicNode is the value of one dynamic node slot. The set of
// implementations is closed: Text, Placeholder, Fragment and Component.
type DynamicNode interface {
	dynamicNode()
}

// Text is dynamic text content.
type Text string

// Placeholder renders an empty anchor node.
type Placeholder struct{}

// Fragment is a list of VNodes rendered in order. Keyed fragments are
// reconciled by VNode.Key.
type Fragment []*VNode

// Component mounts a child scope running Render with Props.
//
// A parent re-render re-runs the child only when Props changed. Render may
// be a closure; the child keeps the newest one for its own later renders,
// but values captured by it do not trigger a re-render. Pass anything the
// child depends on in Props.
type Component struct {
	Name   string
	Render RenderFunc
	Props  any
}

func (Text) dynamicNode()        {}
func (Placeholder) dynamicNode() {}
func (Fragment) dynamicNode()    {}
func (Component) dynamicNode()   {}

// C builds a Component dynamic node.
func C(name string, render RenderFunc, props any) Component {
	return Component{Name: name, Render: render, Props: props}
}

// Range maps items to a Fragment, skipping nil results.
func Range[T any](items []T, fn func(item T, index int) *VNode) Fragment {
	out := make(Fragment, 0, len(items))
	for i, item := range items {
		if v := fn(item, i); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func renderIdentity(fn RenderFunc) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

func sameRender(a, b Component) bool {
	return renderIdentity(a.Render) == renderIdentity(b.Render)
}

// propsEqual compares component props. Props containing functions never
// compare equal, so such components always re-render with their parent.
func propsEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

var placeholderTemplate = NewTemplate("vdom:placeholder", Dyn(0))

func placeholderNode() *VNode {
	return NewVNode("", placeholderTemplate, []DynamicNode{Placeholder{}}, nil)
}
