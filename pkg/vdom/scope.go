package vdom

import (
	"errors"
	"reflect"
	"runtime"
	"strings"
	"time"

	verrors "github.com/vango-dev/vcore/internal/errors"
)

// RenderFunc is a component body. Returning a nil VNode renders nothing;
// returning a SuspendedError suspends the scope; any other error is handed
// to the nearest ErrorBoundary. See Component for how closures are
// treated.
type RenderFunc func(s *Scope) (*VNode, error)

// ScopeStatus is the lifecycle state of a scope.
type ScopeStatus uint8

const (
	ScopeMounted   ScopeStatus = iota + 1 // Rendered at least once
	ScopeSuspended                        // Last render waited on a task
	ScopeTornDown                         // Removed; the id is stale
)

// String returns the string representation of the ScopeStatus.
func (s ScopeStatus) String() string {
	switch s {
	case ScopeMounted:
		return "Mounted"
	case ScopeSuspended:
		return "Suspended"
	case ScopeTornDown:
		return "TornDown"
	default:
		return "Unknown"
	}
}

// Scope is one mounted component instance and its hook state.
type Scope struct {
	dom    *VirtualDom
	id     ScopeID
	parent *Scope
	height int
	name   string

	render   RenderFunc
	props    any
	slot     *slotRef
	rendered *VNode
	status   ScopeStatus
	renders  int

	hooks   []hook
	hookIdx int

	tasks    map[TaskID]struct{}
	contexts map[reflect.Type]any

	suspense *suspenseState
	errs     *errorState

	// fallback is set on direct children of a suspense boundary that belong
	// to its fallback rather than its real children.
	fallback bool
}

// ID returns the scope id.
func (s *Scope) ID() ScopeID { return s.id }

// Name returns the component name.
func (s *Scope) Name() string { return s.name }

// Height returns the scope's depth; the root scope has height 0.
func (s *Scope) Height() int { return s.height }

// Parent returns the parent scope id, or 0 for the root.
func (s *Scope) Parent() ScopeID {
	if s.parent == nil {
		return 0
	}
	return s.parent.id
}

// Props returns the props passed by the parent.
func (s *Scope) Props() any { return s.props }

// Status returns the scope's lifecycle state.
func (s *Scope) Status() ScopeStatus { return s.status }

// RenderCount returns how many times the component body has run.
func (s *Scope) RenderCount() int { return s.renders }

// MarkDirty schedules the scope for re-rendering on the next tick.
func (s *Scope) MarkDirty() { s.dom.MarkDirty(s.id) }

// PropsOf returns the scope's props as T, or the zero value.
func PropsOf[T any](s *Scope) T {
	p, _ := s.props.(T)
	return p
}

func (d *VirtualDom) scope(id ScopeID) *Scope {
	if id == 0 {
		return nil
	}
	s, ok := d.scopes.Get(id.key())
	if !ok {
		return nil
	}
	return s
}

// newScope allocates a scope for c below the scope currently being built.
func (d *VirtualDom) newScope(c Component, slot *slotRef) *Scope {
	s := &Scope{
		dom:    d,
		parent: d.owner,
		name:   c.Name,
		render: c.Render,
		props:  c.Props,
		slot:   slot,
		status: ScopeMounted,
		tasks:  make(map[TaskID]struct{}),
	}
	if s.parent != nil {
		s.height = s.parent.height + 1
		s.fallback = d.fallbackOf == s.parent
	}
	if s.name == "" {
		s.name = funcName(c.Render)
	}
	if renderIdentity(c.Render) == suspenseRenderID {
		s.suspense = &suspenseState{pending: make(map[TaskID]struct{})}
	}
	s.id = ScopeID(d.scopes.Insert(s).Uint64())
	return s
}

func funcName(fn RenderFunc) string {
	if fn == nil {
		return "anonymous"
	}
	f := runtime.FuncForPC(renderIdentity(fn))
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// runScope runs the component body once and returns what it rendered.
// Suspension and errors render a placeholder.
func (d *VirtualDom) runScope(s *Scope) *VNode {
	start := time.Now()
	s.hookIdx = 0

	prev := d.current
	d.current = s
	var (
		v   *VNode
		err error
	)
	func() {
		defer func() { d.current = prev }()
		if s.render != nil {
			v, err = s.render(s)
		}
	}()
	s.renders++

	var susp *SuspendedError
	switch {
	case err == nil:
		s.status = ScopeMounted
	case errors.As(err, &susp):
		s.status = ScopeSuspended
		d.suspend(s, susp.Task)
		v = nil
	default:
		s.status = ScopeMounted
		d.propagateError(s, err)
		v = nil
	}
	if v == nil {
		v = placeholderNode()
	}
	d.observer.ScopeRendered(s.name, s.status == ScopeSuspended, time.Since(start))
	return v
}

// rerenderScope runs s again and diffs its output against what it last
// rendered.
func (d *VirtualDom) rerenderScope(to *Mutations, s *Scope) {
	d.clearDirty(s.id)
	if s.suspense != nil {
		d.rerenderSuspense(to, s)
		return
	}
	old := s.rendered
	v := d.runScope(s)
	d.within(s, false, func() {
		d.diffNode(to, old, v)
	})
	s.rendered = v
}

// within runs fn with s as the owner of any scope created meanwhile.
func (d *VirtualDom) within(s *Scope, fallback bool, fn func()) {
	prevOwner, prevFallback := d.owner, d.fallbackOf
	d.owner = s
	d.fallbackOf = nil
	if fallback {
		d.fallbackOf = s
	}
	defer func() {
		d.owner, d.fallbackOf = prevOwner, prevFallback
	}()
	fn()
}

// isBackground reports whether s sits below a suspense boundary that is
// currently showing its fallback, so its output must not reach the renderer.
func (d *VirtualDom) isBackground(s *Scope) bool {
	for cur := s; cur.parent != nil; cur = cur.parent {
		p := cur.parent
		if p.suspense != nil && !p.suspense.showing && !cur.fallback {
			return true
		}
	}
	return false
}

// propagateError hands err to the nearest error boundary above s.
func (d *VirtualDom) propagateError(s *Scope, err error) {
	for cur := s; cur.parent != nil; cur = cur.parent {
		p := cur.parent
		if p.errs == nil {
			continue
		}
		if p.errs.err == nil {
			p.errs.err = err
			p.errs.source = s.name
		}
		d.MarkDirty(p.id)
		return
	}
	d.logger.Error("vdom: "+verrors.New("E401").FormatCompact(),
		"scope", s.name,
		"scope_id", s.id.String(),
		"error", err)
	if d.onError != nil {
		d.onError(s.id, err)
	}
}

// dropScope runs hook cleanups in reverse creation order and frees the
// arena slot. The scope's output and tasks must already be gone.
func (d *VirtualDom) dropScope(s *Scope) {
	for i := len(s.hooks) - 1; i >= 0; i-- {
		if c, ok := s.hooks[i].value.(disposer); ok {
			d.safeCleanup(s, c)
		}
	}
	s.hooks = nil
	s.rendered = nil
	s.status = ScopeTornDown
	d.clearDirty(s.id)
	d.scopes.Remove(s.id.key())
}

func (d *VirtualDom) safeCleanup(s *Scope, c disposer) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("vdom: cleanup panic", "scope", s.name, "panic", r)
		}
	}()
	c.dispose()
}
