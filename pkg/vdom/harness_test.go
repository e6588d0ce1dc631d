package vdom_test

import (
	"strings"
	"testing"

	"github.com/vango-dev/vcore/pkg/render"
	"github.com/vango-dev/vcore/pkg/vdom"
)

// harness drives a VirtualDom and mirrors its output into a Document.
type harness struct {
	t   *testing.T
	dom *vdom.VirtualDom
	doc *render.Document
}

func newHarness(t *testing.T, root vdom.RenderFunc, opts ...vdom.Option) *harness {
	t.Helper()
	return harnessFor(t, vdom.New(root, nil, opts...))
}

// harnessFor rebuilds an existing VirtualDom into a fresh Document.
func harnessFor(t *testing.T, dom *vdom.VirtualDom) *harness {
	t.Helper()
	h := &harness{t: t, dom: dom, doc: render.NewDocument()}
	t.Cleanup(h.dom.Close)
	var m vdom.Mutations
	if err := h.dom.Rebuild(&m); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	h.apply(m.Take())
	return h
}

func (h *harness) apply(edits []vdom.Mutation) {
	h.t.Helper()
	if err := h.doc.Apply(edits); err != nil {
		h.t.Fatalf("Apply() error = %v\nedits: %v", err, edits)
	}
	if d := h.doc.StackDepth(); d != 0 {
		h.t.Fatalf("stack depth after apply = %d, want 0\nedits: %v", d, edits)
	}
}

// tick runs one Tick and returns the edits it produced.
func (h *harness) tick() *vdom.Mutations {
	h.t.Helper()
	m := &vdom.Mutations{}
	h.dom.Tick(m)
	out := &vdom.Mutations{Edits: append([]vdom.Mutation(nil), m.Edits...)}
	h.apply(m.Take())
	return out
}

// flush ticks until nothing is pending and returns all edits.
func (h *harness) flush() *vdom.Mutations {
	h.t.Helper()
	m := &vdom.Mutations{}
	h.dom.RenderImmediate(m)
	out := &vdom.Mutations{Edits: append([]vdom.Mutation(nil), m.Edits...)}
	h.apply(m.Take())
	return out
}

func (h *harness) html() string {
	h.t.Helper()
	s, err := render.NewRenderer(render.RendererConfig{}).RenderToString(h.doc)
	if err != nil {
		h.t.Fatalf("RenderToString() error = %v", err)
	}
	return s
}

// find returns the first element with the given tag in document order.
func (h *harness) find(tag string) *render.Node {
	h.t.Helper()
	var walk func(n *render.Node) *render.Node
	walk = func(n *render.Node) *render.Node {
		if n.Kind == render.KindElement && n.Tag == tag {
			return n
		}
		for _, c := range n.Children {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	n := walk(h.doc.Root())
	if n == nil {
		h.t.Fatalf("no <%s> in %s", tag, h.html())
	}
	return n
}

func edits(m *vdom.Mutations) string {
	parts := make([]string, len(m.Edits))
	for i, e := range m.Edits {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
