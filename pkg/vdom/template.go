package vdom

import (
	"fmt"

	verrors "github.com/vango-dev/vcore/internal/errors"
)

// TemplateNode is one node of a Template's static structure. The set of
// implementations is closed: Element, StaticText, Dynamic and DynamicText.
type TemplateNode interface {
	templateNode()
}

// Element is a static element with static or slot-bound attributes.
type Element struct {
	Tag       string
	Namespace string
	Attrs     []TemplateAttr
	Children  []TemplateNode
}

// StaticText is a text node whose content never changes.
type StaticText string

// Dynamic marks the position of dynamic node slot Slot.
type Dynamic struct {
	Slot int
}

// DynamicText marks a dynamic node slot that is expected to hold Text.
type DynamicText struct {
	Slot int
}

func (Element) templateNode()     {}
func (StaticText) templateNode()  {}
func (Dynamic) templateNode()     {}
func (DynamicText) templateNode() {}

// TemplateAttr is an attribute declared on a template element. Static
// attributes carry their value; dynamic ones point at an attribute slot whose
// group of Attributes is supplied per render.
type TemplateAttr struct {
	Name      string
	Namespace string
	Value     string
	Dynamic   bool
	Slot      int
}

// Template is the immutable static skeleton of one call site.
//
// NodePaths[i] is the path from the template roots to dynamic node slot i,
// AttrPaths[i] the path to the element owning attribute slot i. The first
// byte of a path is the root index, every further byte a child index.
//
// Templates are compared by Name. Build them with NewTemplate and never
// modify them afterwards.
type Template struct {
	Name      string
	Roots     []TemplateNode
	NodePaths [][]byte
	AttrPaths [][]byte

	// statics lists every Element and StaticText in pre-order.
	statics    []staticNode
	rootStatic []int
	rootSlot   []int
	rootSlots  []bool
	attrOwner  []int
}

type staticNode struct {
	path []byte
	text bool
}

// NewTemplate builds a template from its roots and derives its path tables.
// It panics with a coded error if slot ids are not dense or a node has more
// than 255 children; both are producer errors, not runtime conditions.
func NewTemplate(name string, roots ...TemplateNode) *Template {
	t := &Template{
		Name:       name,
		Roots:      roots,
		rootStatic: make([]int, len(roots)),
		rootSlot:   make([]int, len(roots)),
	}
	if len(roots) == 0 {
		panic(verrors.New("E104").WithDetailf("template %q has no roots", name))
	}
	if len(roots) > 255 {
		panic(verrors.New("E103").WithDetailf("template %q has %d roots", name, len(roots)))
	}

	nodes := map[int][]byte{}
	attrs := map[int][]byte{}
	owners := map[int]int{}

	var walk func(n TemplateNode, path []byte)
	walk = func(n TemplateNode, path []byte) {
		switch n := n.(type) {
		case Element:
			idx := len(t.statics)
			t.statics = append(t.statics, staticNode{path: path})
			for _, a := range n.Attrs {
				if !a.Dynamic {
					continue
				}
				if _, dup := attrs[a.Slot]; dup {
					panic(verrors.New("E101").WithDetailf("template %q: attribute slot %d used twice", name, a.Slot))
				}
				attrs[a.Slot] = path
				owners[a.Slot] = idx
			}
			if len(n.Children) > 255 {
				panic(verrors.New("E103").WithDetailf("template %q: <%s> has %d children", name, n.Tag, len(n.Children)))
			}
			for i, c := range n.Children {
				child := make([]byte, len(path)+1)
				copy(child, path)
				child[len(path)] = byte(i)
				walk(c, child)
			}
		case StaticText:
			t.statics = append(t.statics, staticNode{path: path, text: true})
		case Dynamic:
			addNodeSlot(name, nodes, n.Slot, path)
		case DynamicText:
			addNodeSlot(name, nodes, n.Slot, path)
		default:
			panic(verrors.New("E104").WithDetailf("template %q: unsupported node %T", name, n))
		}
	}

	for i, root := range roots {
		t.rootStatic[i], t.rootSlot[i] = -1, -1
		switch r := root.(type) {
		case Dynamic:
			t.rootSlot[i] = r.Slot
		case DynamicText:
			t.rootSlot[i] = r.Slot
		default:
			t.rootStatic[i] = len(t.statics)
		}
		walk(root, []byte{byte(i)})
	}

	t.NodePaths = densePaths(name, "node", nodes)
	t.AttrPaths = densePaths(name, "attribute", attrs)
	t.attrOwner = make([]int, len(t.AttrPaths))
	for slot := range t.AttrPaths {
		t.attrOwner[slot] = owners[slot]
	}
	t.rootSlots = make([]bool, len(t.NodePaths))
	for _, slot := range t.rootSlot {
		if slot >= 0 {
			t.rootSlots[slot] = true
		}
	}
	return t
}

func addNodeSlot(name string, nodes map[int][]byte, slot int, path []byte) {
	if _, dup := nodes[slot]; dup {
		panic(verrors.New("E101").WithDetailf("template %q: node slot %d used twice", name, slot))
	}
	nodes[slot] = path
}

func densePaths(name, kind string, slots map[int][]byte) [][]byte {
	paths := make([][]byte, len(slots))
	for i := range paths {
		p, ok := slots[i]
		if !ok {
			panic(verrors.New("E101").WithDetailf("template %q: %s slots are not 0..%d, missing %d", name, kind, len(slots)-1, i))
		}
		paths[i] = p
	}
	return paths
}

// StaticNodeCount returns the number of static elements and text nodes.
func (t *Template) StaticNodeCount() int {
	return len(t.statics)
}

// String returns the template name.
func (t *Template) String() string {
	return fmt.Sprintf("Template(%s)", t.Name)
}

// El builds a template element. Arguments may be TemplateAttr values,
// TemplateNode values or plain strings (static text).
//
//	vdom.El("button", vdom.StaticAttr("type", "submit"), vdom.DynAttr(0), "Save")
func El(tag string, args ...any) Element {
	return ElNS("", tag, args...)
}

// ElNS builds a namespaced template element (e.g. SVG).
func ElNS(namespace, tag string, args ...any) Element {
	e := Element{Tag: tag, Namespace: namespace}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case TemplateAttr:
			e.Attrs = append(e.Attrs, v)
		case []TemplateAttr:
			e.Attrs = append(e.Attrs, v...)
		case TemplateNode:
			e.Children = append(e.Children, v)
		case []TemplateNode:
			e.Children = append(e.Children, v...)
		case string:
			e.Children = append(e.Children, StaticText(v))
		default:
			panic(verrors.New("E104").WithDetailf("<%s>: unsupported argument %T", tag, arg))
		}
	}
	return e
}

// Txt builds a static text node.
func Txt(text string) StaticText { return StaticText(text) }

// Dyn marks dynamic node slot n.
func Dyn(n int) Dynamic { return Dynamic{Slot: n} }

// DynText marks dynamic text slot n.
func DynText(n int) DynamicText { return DynamicText{Slot: n} }

// StaticAttr declares an attribute with a fixed value.
func StaticAttr(name, value string) TemplateAttr {
	return TemplateAttr{Name: name, Value: value}
}

// StaticAttrNS declares a namespaced attribute with a fixed value.
func StaticAttrNS(namespace, name, value string) TemplateAttr {
	return TemplateAttr{Name: name, Namespace: namespace, Value: value}
}

// DynAttr declares attribute slot n on the enclosing element.
func DynAttr(n int) TemplateAttr {
	return TemplateAttr{Dynamic: true, Slot: n}
}
