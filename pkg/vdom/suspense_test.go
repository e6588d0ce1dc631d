package vdom_test

import (
	"errors"
	"testing"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// gate is a future completed by the test.
type gate struct {
	open  bool
	waker vdom.Waker
	polls int
}

func (g *gate) Poll(w vdom.Waker) bool {
	g.polls++
	g.waker = w
	return g.open
}

func (g *gate) release() {
	g.open = true
	g.waker.Wake()
}

var (
	contentTemplate  = vdom.NewTemplate("suspense-test:content", vdom.El("article", vdom.DynText(0)))
	fallbackTemplate = vdom.NewTemplate("suspense-test:fallback", vdom.El("progress"))
)

// waiter suspends on the gate in its props until it opens.
func waiter(s *vdom.Scope) (*vdom.VNode, error) {
	g := vdom.PropsOf[*gate](s)
	id := vdom.UseHook(s, func() vdom.TaskID {
		return s.Spawn(vdom.FutureFunc(func(w vdom.Waker) bool {
			done := g.Poll(w)
			if done {
				s.MarkDirty()
			}
			return done
		}))
	})
	if !g.open {
		return nil, &vdom.SuspendedError{Task: *id}
	}
	return vdom.NewVNode("", contentTemplate, []vdom.DynamicNode{vdom.Text("loaded")}, nil), nil
}

func waiterAgain(s *vdom.Scope) (*vdom.VNode, error) { return waiter(s) }

func suspenseApp(g *gate, fallback *vdom.VNode) vdom.RenderFunc {
	children := vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{vdom.C("Waiter", waiter, g)}, nil)
	return func(s *vdom.Scope) (*vdom.VNode, error) {
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{
			vdom.Suspense(vdom.SuspenseProps{Children: children, Fallback: fallback}),
		}, nil), nil
	}
}

func TestSuspenseShowsFallbackThenReplacesOnce(t *testing.T) {
	g := &gate{}
	h := newHarness(t, suspenseApp(g, vdom.Static(fallbackTemplate)))

	if html := h.html(); html != "<div><progress></progress></div>" {
		t.Fatalf("initial html = %q", html)
	}
	anchor := h.find("progress").ID
	// Only the outer div and the fallback exist; the hidden children have no ids.
	if got := h.dom.ElementCount(); got != 2 {
		t.Errorf("ElementCount() = %d, want 2", got)
	}

	h.flush()
	if g.polls != 1 {
		t.Fatalf("polls = %d, want 1", g.polls)
	}

	g.release()
	got := h.flush()

	if n := got.Count(vdom.OpReplaceWith); n != 1 {
		t.Fatalf("ReplaceWith count = %d, want 1 (%s)", n, edits(got))
	}
	for _, e := range got.Edits {
		if e.Op == vdom.OpReplaceWith && e.ID != anchor {
			t.Errorf("ReplaceWith target = %v, want fallback anchor %v", e.ID, anchor)
		}
	}
	if html := h.html(); html != "<div><div><article>loaded</article></div></div>" {
		t.Errorf("html = %q", html)
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
}

func TestSuspenseWithoutPendingRendersChildren(t *testing.T) {
	g := &gate{open: true}
	h := newHarness(t, suspenseApp(g, vdom.Static(fallbackTemplate)))

	if html := h.html(); html != "<div><div><article>loaded</article></div></div>" {
		t.Errorf("html = %q", html)
	}
}

func TestSuspenseDefaultFallbackIsPlaceholder(t *testing.T) {
	g := &gate{}
	h := newHarness(t, suspenseApp(g, nil))

	if html := h.html(); html != "<div><!----></div>" {
		t.Fatalf("initial html = %q", html)
	}
	h.flush()
	g.release()
	h.flush()
	if html := h.html(); html != "<div><div><article>loaded</article></div></div>" {
		t.Errorf("html = %q", html)
	}
}

func TestSuspendAgainAfterShowing(t *testing.T) {
	first := &gate{open: true}
	var current *vdom.State[*gate]
	app := func(s *vdom.Scope) (*vdom.VNode, error) {
		current = vdom.UseState(s, func() *gate { return first })
		g := current.Get()
		children := vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{vdom.C("Waiter", waiter, g)}, nil)
		if g != first {
			// A new component instance so the hook spawns a fresh task.
			children = vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{vdom.C("Waiter2", waiterAgain, g)}, nil)
		}
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{
			vdom.Suspense(vdom.SuspenseProps{Children: children, Fallback: vdom.Static(fallbackTemplate)}),
		}, nil), nil
	}
	h := newHarness(t, app)
	if html := h.html(); html != "<div><div><article>loaded</article></div></div>" {
		t.Fatalf("initial html = %q", html)
	}

	second := &gate{}
	current.Set(second)
	h.flush()
	if html := h.html(); html != "<div><progress></progress></div>" {
		t.Fatalf("html after suspending = %q", html)
	}

	second.release()
	h.flush()
	if html := h.html(); html != "<div><div><article>loaded</article></div></div>" {
		t.Errorf("html after resolving = %q", html)
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
}

func TestSuspendedErrorIs(t *testing.T) {
	var err error = &vdom.SuspendedError{Task: 1}
	if !errors.Is(err, vdom.ErrSuspended) {
		t.Error("SuspendedError should match ErrSuspended")
	}
}
