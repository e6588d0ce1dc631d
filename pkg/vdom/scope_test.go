package vdom_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// pendingFuture never completes on its own and counts polls.
type pendingFuture struct {
	polls    int
	canceled bool
	waker    vdom.Waker
}

func (f *pendingFuture) Poll(w vdom.Waker) bool {
	f.polls++
	f.waker = w
	return false
}

func (f *pendingFuture) Cancel() { f.canceled = true }

type lifecycleProps struct {
	name     string
	log      *[]string
	future   *pendingFuture
	children int
}

var boxTemplate = vdom.NewTemplate("scope-test:box", vdom.El("div", vdom.Dyn(0)))

func lifecycle(s *vdom.Scope) (*vdom.VNode, error) {
	p := vdom.PropsOf[lifecycleProps](s)
	vdom.OnCleanup(s, func() { *p.log = append(*p.log, "cleanup "+p.name) })
	vdom.UseHook(s, func() vdom.TaskID {
		if p.future == nil {
			return 0
		}
		return s.Spawn(p.future)
	})
	var child vdom.DynamicNode
	if p.children > 0 {
		child = vdom.C("Child", lifecycle, lifecycleProps{
			name:     p.name + "/child",
			log:      p.log,
			future:   &pendingFuture{},
			children: p.children - 1,
		})
	}
	return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{child}, nil), nil
}

func togglingRoot(show *vdom.State[bool], props lifecycleProps) vdom.RenderFunc {
	return func(s *vdom.Scope) (*vdom.VNode, error) {
		var child vdom.DynamicNode
		if show.Get() {
			child = vdom.C("Parent", lifecycle, props)
		}
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{child}, nil), nil
	}
}

func TestTeardownCancelsTasksBeforePolling(t *testing.T) {
	var log []string
	fut := &pendingFuture{}
	var show *vdom.State[bool]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseState(s, func() bool { return true })
		return togglingRoot(show, lifecycleProps{name: "p", log: &log, future: fut})(s)
	})
	if got := h.dom.TaskCount(); got != 1 {
		t.Fatalf("TaskCount() = %d, want 1", got)
	}

	// Tear down before the first poll.
	show.Set(false)
	h.flush()

	if fut.polls != 0 {
		t.Errorf("polls = %d, want 0", fut.polls)
	}
	if !fut.canceled {
		t.Error("future should be canceled")
	}
	if got := h.dom.TaskCount(); got != 0 {
		t.Errorf("TaskCount() = %d, want 0", got)
	}
}

func TestTornDownTaskIsNeverPolledAgain(t *testing.T) {
	var log []string
	fut := &pendingFuture{}
	var show *vdom.State[bool]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseState(s, func() bool { return true })
		return togglingRoot(show, lifecycleProps{name: "p", log: &log, future: fut})(s)
	})
	h.flush()
	if fut.polls != 1 {
		t.Fatalf("polls = %d, want 1", fut.polls)
	}

	show.Set(false)
	h.flush()
	fut.waker.Wake()
	h.dom.Wake(fut.waker.Task())
	h.flush()

	if fut.polls != 1 {
		t.Errorf("polls after teardown = %d, want 1", fut.polls)
	}
}

func TestTeardownOrder(t *testing.T) {
	var log []string
	var show *vdom.State[bool]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseState(s, func() bool { return true })
		return togglingRoot(show, lifecycleProps{name: "p", log: &log, children: 2})(s)
	})
	scopes := h.dom.ScopeCount()
	if scopes != 4 {
		t.Fatalf("ScopeCount() = %d, want 4", scopes)
	}
	parent := h.dom.Root()

	show.Set(false)
	got := h.tick()

	want := []string{"cleanup p/child/child", "cleanup p/child", "cleanup p"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("cleanup order mismatch (-want +got):\n%s", diff)
	}
	if got := h.dom.ScopeCount(); got != 1 {
		t.Errorf("ScopeCount() = %d, want 1", got)
	}
	// Only the outermost node is replaced; nested nodes go with it.
	if c := got.Count(vdom.OpReplaceWith) + got.Count(vdom.OpRemove); c != 1 {
		t.Errorf("remove/replace count = %d, want 1 (%s)", c, edits(got))
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
	if _, ok := h.dom.Scope(parent.ID()); !ok {
		t.Error("root scope should survive")
	}
}

func TestStaleScopeID(t *testing.T) {
	var show *vdom.State[bool]
	var childID vdom.ScopeID
	child := func(s *vdom.Scope) (*vdom.VNode, error) {
		childID = s.ID()
		return vdom.Static(swapA), nil
	}
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseState(s, func() bool { return true })
		var node vdom.DynamicNode
		if show.Get() {
			node = vdom.C("Child", child, nil)
		}
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{node}, nil), nil
	})
	first := childID
	scope, ok := h.dom.Scope(first)
	if !ok {
		t.Fatal("child scope not found")
	}

	show.Set(false)
	h.tick()

	if _, ok := h.dom.Scope(first); ok {
		t.Error("stale ScopeID should not resolve")
	}
	if got := scope.Status(); got != vdom.ScopeTornDown {
		t.Errorf("Status() = %v, want TornDown", got)
	}
	if _, err := h.dom.Spawn(first, &pendingFuture{}); err != vdom.ErrScopeNotFound {
		t.Errorf("Spawn() error = %v, want ErrScopeNotFound", err)
	}
	h.dom.MarkDirty(first)
	if h.dom.HasPendingWork() {
		t.Error("MarkDirty on a stale id should do nothing")
	}

	show.Set(true)
	h.tick()
	if childID == first {
		t.Error("new child reused the stale ScopeID")
	}
	if _, ok := h.dom.Scope(first); ok {
		t.Error("recycled slot should not resolve the old ScopeID")
	}
}

func TestCloseTearsDownEverything(t *testing.T) {
	var log []string
	root := vdom.New(func(s *vdom.Scope) (*vdom.VNode, error) {
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{
			vdom.C("Parent", lifecycle, lifecycleProps{name: "p", log: &log, children: 1}),
		}, nil), nil
	}, nil)
	if err := root.Rebuild(nil); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if got := root.ElementCount(); got != 0 {
		t.Errorf("background Rebuild allocated %d ids, want 0", got)
	}
	root.Close()

	if diff := cmp.Diff([]string{"cleanup p/child", "cleanup p"}, log); diff != "" {
		t.Errorf("cleanup mismatch (-want +got):\n%s", diff)
	}
	if got := root.ScopeCount(); got != 0 {
		t.Errorf("ScopeCount() = %d, want 0", got)
	}
	if got := root.TaskCount(); got != 0 {
		t.Errorf("TaskCount() = %d, want 0", got)
	}
	if err := root.Rebuild(nil); err != vdom.ErrClosed {
		t.Errorf("Rebuild() after Close error = %v, want ErrClosed", err)
	}
}
