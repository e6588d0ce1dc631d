package vdom

import "errors"

// ErrSuspended matches every SuspendedError.
var ErrSuspended = errors.New("vdom: suspended")

// SuspendedError is returned by a render function that waits on Task.
type SuspendedError struct {
	Task TaskID
}

func (e *SuspendedError) Error() string {
	return "vdom: suspended on task " + e.Task.String()
}

// Is reports whether target is ErrSuspended.
func (e *SuspendedError) Is(target error) bool {
	return target == ErrSuspended
}

// SuspenseProps configures a Suspense boundary.
type SuspenseProps struct {
	// Children is the real content.
	Children *VNode
	// Fallback is shown while a task below Children is pending. A nil
	// Fallback renders an empty placeholder.
	Fallback *VNode
}

// Suspense returns a boundary component. While any component below
// Children is suspended, Children stay mounted in the background and
// Fallback is shown in their place.
func Suspense(props SuspenseProps) Component {
	return Component{Name: "Suspense", Render: suspenseRender, Props: props}
}

func suspenseRender(s *Scope) (*VNode, error) {
	p, _ := s.props.(SuspenseProps)
	return p.Children, nil
}

var suspenseRenderID = renderIdentity(suspenseRender)

type suspenseState struct {
	pending  map[TaskID]struct{}
	children *VNode
	showing  bool
}

// Pending returns the number of tasks a Suspense scope is waiting on.
func (s *Scope) Pending() int {
	if s.suspense == nil {
		return 0
	}
	return len(s.suspense.pending)
}

func (d *VirtualDom) fallbackNode(s *Scope) *VNode {
	if p, _ := s.props.(SuspenseProps); p.Fallback != nil {
		return p.Fallback
	}
	return placeholderNode()
}

// mountSuspense creates the boundary's children in the background first.
// They are only realized if nothing below them suspended.
func (d *VirtualDom) mountSuspense(to *Mutations, s *Scope) int {
	b := s.suspense
	children := d.runScope(s)
	b.children = children
	d.within(s, false, func() {
		d.createVNode(nil, children, s.slot)
	})

	n := 0
	if len(b.pending) == 0 {
		b.showing = true
		s.rendered = children
		if to != nil {
			d.within(s, false, func() {
				n = d.createVNode(to, children, s.slot)
			})
		}
		return n
	}

	b.showing = false
	fb := d.fallbackNode(s)
	s.rendered = fb
	d.within(s, true, func() {
		n = d.createVNode(to, fb, s.slot)
	})
	return n
}

// rerenderSuspense diffs the boundary's children, live or in the
// background, and swaps between children and fallback with a single
// replace when the pending set changes.
func (d *VirtualDom) rerenderSuspense(to *Mutations, s *Scope) {
	b := s.suspense
	old := b.children
	children := d.runScope(s)
	b.children = children

	if b.showing {
		d.within(s, false, func() {
			d.diffNode(to, old, children)
		})
		s.rendered = children
		if len(b.pending) > 0 {
			fb := d.fallbackNode(s)
			n := 0
			d.within(s, true, func() {
				n = d.createVNode(to, fb, s.slot)
			})
			d.removeNode(to, children, n, false)
			b.showing = false
			s.rendered = fb
		}
		d.clearDirty(s.id)
		return
	}

	d.within(s, false, func() {
		d.diffNode(nil, old, children)
	})
	if len(b.pending) == 0 {
		n := 0
		d.within(s, false, func() {
			n = d.createVNode(to, children, s.slot)
		})
		d.removeNode(to, s.rendered, n, true)
		b.showing = true
		s.rendered = children
		d.clearDirty(s.id)
		return
	}

	fb := d.fallbackNode(s)
	d.within(s, true, func() {
		d.diffNode(to, s.rendered, fb)
	})
	s.rendered = fb
	d.clearDirty(s.id)
}

// boundaryFor returns the nearest Suspense boundary whose children contain s.
func (d *VirtualDom) boundaryFor(s *Scope) *Scope {
	for cur := s; cur.parent != nil; cur = cur.parent {
		if p := cur.parent; p.suspense != nil && !cur.fallback {
			return p
		}
	}
	return nil
}

// suspend records that s waits on task.
func (d *VirtualDom) suspend(s *Scope, id TaskID) {
	b := d.boundaryFor(s)
	if b == nil {
		d.logger.Debug("vdom: scope suspended outside a Suspense boundary", "scope", s.name)
		return
	}
	t := d.task(id)
	if t == nil {
		return
	}
	t.boundary = b.id
	if _, ok := b.suspense.pending[id]; ok {
		return
	}
	b.suspense.pending[id] = struct{}{}
	if b.suspense.showing {
		d.MarkDirty(b.id)
	}
}
