package vdom_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vcore/pkg/vdom"
)

func TestShallowestScopeRendersFirst(t *testing.T) {
	var order []string
	var parentState, childState *vdom.State[int]
	child := func(s *vdom.Scope) (*vdom.VNode, error) {
		order = append(order, "child")
		childState = vdom.UseState(s, func() int { return 0 })
		n := childState.Get() + vdom.PropsOf[int](s)
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(strconv.Itoa(n))}, nil), nil
	}
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		order = append(order, "parent")
		parentState = vdom.UseState(s, func() int { return 0 })
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{
			vdom.C("Child", child, parentState.Get()),
		}, nil), nil
	})
	order = nil

	// Child is marked first but the parent is shallower.
	childState.Set(1)
	parentState.Set(10)
	h.tick()

	if diff := cmp.Diff([]string{"parent", "child"}, order); diff != "" {
		t.Errorf("render order mismatch (-want +got):\n%s", diff)
	}
	if h.dom.HasPendingWork() {
		t.Error("child re-rendered by its parent should leave the dirty set")
	}
	if html := h.html(); html != "<div><span>11</span></div>" {
		t.Errorf("html = %q", html)
	}
}

var pairTemplate = vdom.NewTemplate("scheduler-test:pair", vdom.El("div", vdom.Dyn(0), vdom.Dyn(1)))

func TestTickDrainsOneLevel(t *testing.T) {
	var a, b *vdom.State[int]
	leaf := func(s *vdom.Scope) (*vdom.VNode, error) {
		b = vdom.UseState(s, func() int { return 0 })
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(strconv.Itoa(b.Get()))}, nil), nil
	}
	mid := func(s *vdom.Scope) (*vdom.VNode, error) {
		a = vdom.UseState(s, func() int { return 0 })
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(strconv.Itoa(a.Get()))}, nil), nil
	}
	branch := func(s *vdom.Scope) (*vdom.VNode, error) {
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{vdom.C("Leaf", leaf, nil)}, nil), nil
	}
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		return vdom.NewVNode("", pairTemplate, []vdom.DynamicNode{
			vdom.C("Mid", mid, nil),
			vdom.C("Branch", branch, nil),
		}, nil), nil
	})

	// Mid has height 1, Leaf height 2 under a clean Branch.
	a.Set(1)
	b.Set(1)

	more := h.dom.Tick(&vdom.Mutations{})
	if !more {
		t.Error("Tick() = false, want true while a deeper level is still dirty")
	}
	if h.dom.Tick(&vdom.Mutations{}) {
		t.Error("second Tick() = true, want false")
	}
	if html := h.html(); html != "<div><span>0</span><div><span>0</span></div></div>" {
		t.Errorf("unapplied document changed: %q", html)
	}
}

func TestTaskDrivenAcrossTicks(t *testing.T) {
	var resource *vdom.Resource[string]
	release := make(chan struct{})
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		resource = vdom.UseFuture(s, func(ctx context.Context) (string, error) {
			select {
			case <-release:
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
		text := "waiting"
		if v, ok := resource.Value(); ok {
			text = v
		}
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(text)}, nil), nil
	})

	h.flush()
	if resource.Ready() {
		t.Fatal("resource ready before release")
	}
	if h.dom.TaskCount() != 1 {
		t.Fatalf("TaskCount() = %d, want 1", h.dom.TaskCount())
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for h.dom.TaskCount() > 0 {
		if err := h.dom.WaitForWork(ctx); err != nil {
			t.Fatalf("WaitForWork() error = %v", err)
		}
		h.flush()
	}

	if html := h.html(); html != "<span>done</span>" {
		t.Errorf("html = %q", html)
	}
}

func TestWaitForWorkHonorsContext(t *testing.T) {
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) { return nil, nil })
	h.flush()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.dom.WaitForWork(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForWork() error = %v, want DeadlineExceeded", err)
	}
}

func TestWakeFromAnotherGoroutine(t *testing.T) {
	var ready atomic.Bool
	polls := 0
	var taskID vdom.TaskID
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		vdom.UseHook(s, func() vdom.TaskID {
			taskID = s.Spawn(vdom.FutureFunc(func(w vdom.Waker) bool {
				polls++
				return ready.Load()
			}))
			return taskID
		})
		return nil, nil
	})
	h.flush()
	if polls != 1 {
		t.Fatalf("polls = %d, want 1", polls)
	}

	go func() {
		ready.Store(true)
		h.dom.Wake(taskID)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.dom.WaitForWork(ctx); err != nil {
		t.Fatalf("WaitForWork() error = %v", err)
	}
	h.flush()

	if polls != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
	if h.dom.TaskCount() != 0 {
		t.Errorf("TaskCount() = %d, want 0", h.dom.TaskCount())
	}
}

func TestScopeGoLogsAndFinishes(t *testing.T) {
	done := make(chan struct{})
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		vdom.UseHook(s, func() vdom.TaskID {
			return s.Go(func(ctx context.Context) error {
				close(done)
				return nil
			})
		})
		return nil, nil
	})
	h.flush()
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for h.dom.TaskCount() > 0 {
		if err := h.dom.WaitForWork(ctx); err != nil {
			t.Fatalf("WaitForWork() error = %v", err)
		}
		h.flush()
	}
}

func TestStateWrittenDuringRenderWaitsForNextTick(t *testing.T) {
	renders := 0
	var st *vdom.State[int]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		renders++
		st = vdom.UseState(s, func() int { return 0 })
		n := st.Get()
		if n > 0 && n < 5 {
			st.Set(n + 1)
		}
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(strconv.Itoa(n))}, nil), nil
	})
	renders = 0

	st.Set(1)
	h.tick()
	if renders != 1 {
		t.Errorf("renders in one Tick = %d, want 1", renders)
	}
	if html := h.html(); html != "<span>1</span>" {
		t.Errorf("html after one Tick = %q, want %q", html, "<span>1</span>")
	}
	if !h.dom.HasPendingWork() {
		t.Error("HasPendingWork() = false, want the write made while rendering queued")
	}

	h.flush()
	if renders != 5 {
		t.Errorf("renders after flush = %d, want 5", renders)
	}
	if html := h.html(); html != "<span>5</span>" {
		t.Errorf("html after flush = %q, want %q", html, "<span>5</span>")
	}
}

func TestTickReturnsWhenRenderAlwaysWrites(t *testing.T) {
	renders := 0
	var st *vdom.State[int]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		renders++
		st = vdom.UseState(s, func() int { return 0 })
		n := st.Get()
		st.Set(n + 1)
		return vdom.NewVNode("", countTemplate, []vdom.DynamicNode{vdom.Text(strconv.Itoa(n))}, nil), nil
	})
	if renders != 1 {
		t.Fatalf("renders after Rebuild = %d, want 1", renders)
	}

	for i := 2; i <= 4; i++ {
		if !h.dom.Tick(&vdom.Mutations{}) {
			t.Fatalf("Tick() = false, want true while the render keeps writing")
		}
		if renders != i {
			t.Fatalf("renders = %d, want %d", renders, i)
		}
	}
}
