package vdom

import (
	"reflect"

	verrors "github.com/vango-dev/vcore/internal/errors"
)

// DebugMode turns precondition warnings into panics. Hook order changes
// are reported with code E201.
var DebugMode = false

// HookType identifies the kind of a hook slot for order validation.
type HookType uint8

const (
	HookRef HookType = iota + 1
	HookState
	HookMemo
	HookFuture
	HookCleanup
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookRef:
		return "Ref"
	case HookState:
		return "State"
	case HookMemo:
		return "Memo"
	case HookFuture:
		return "Future"
	case HookCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

type hook struct {
	kind  HookType
	value any
}

// disposer is implemented by hook values that hold resources.
type disposer interface {
	dispose()
}

// useSlot returns the value of the next hook slot, creating it with init
// on first use. Hooks must be called in the same order on every render.
func useSlot[T any](s *Scope, kind HookType, init func() T) T {
	if s == nil || s.dom.current != s {
		panic(verrors.New("E202").WithDetailf("%s hook", kind))
	}
	idx := s.hookIdx
	s.hookIdx++

	if idx < len(s.hooks) {
		h := s.hooks[idx]
		if v, ok := h.value.(T); ok && h.kind == kind {
			return v
		}
		s.dom.hookMismatch(s, idx, h.kind, kind)
		if c, ok := h.value.(disposer); ok {
			s.dom.safeCleanup(s, c)
		}
		v := init()
		s.hooks[idx] = hook{kind: kind, value: v}
		return v
	}

	v := init()
	s.hooks = append(s.hooks, hook{kind: kind, value: v})
	return v
}

func (d *VirtualDom) hookMismatch(s *Scope, idx int, had, got HookType) {
	err := verrors.New("E201").WithDetailf("scope %s slot %d: was %s, now %s", s.name, idx, had, got)
	if DebugMode {
		panic(err)
	}
	d.logger.Warn("vdom: "+err.FormatCompact(), "scope_id", s.id.String())
}

// UseHook stores a value in the scope and returns a pointer to it that
// stays the same across renders.
func UseHook[T any](s *Scope, init func() T) *T {
	return useSlot(s, HookRef, func() *T {
		v := init()
		return &v
	})
}

// State is a value whose readers re-render when it changes.
type State[T any] struct {
	dom   *VirtualDom
	value T
	subs  map[ScopeID]struct{}
}

// UseState returns the scope's state for this hook slot.
func UseState[T any](s *Scope, init func() T) *State[T] {
	return useSlot(s, HookState, func() *State[T] {
		return NewState(s.dom, init())
	})
}

// NewState creates state outside any component, e.g. shared by a host.
func NewState[T any](d *VirtualDom, value T) *State[T] {
	return &State[T]{dom: d, value: value, subs: make(map[ScopeID]struct{})}
}

// Get returns the value and subscribes the rendering scope, if any.
func (st *State[T]) Get() T {
	if c := st.dom.current; c != nil {
		st.subs[c.id] = struct{}{}
	}
	return st.value
}

// Peek returns the value without subscribing.
func (st *State[T]) Peek() T {
	return st.value
}

// Set stores v and marks every subscribed scope dirty. Nothing re-renders
// until the next tick.
func (st *State[T]) Set(v T) {
	st.value = v
	for id := range st.subs {
		if st.dom.scope(id) == nil {
			delete(st.subs, id)
			continue
		}
		st.dom.MarkDirty(id)
	}
}

// Update replaces the value with fn applied to it.
func (st *State[T]) Update(fn func(T) T) {
	st.Set(fn(st.value))
}

func (st *State[T]) dispose() {
	clear(st.subs)
}

type memo[T any] struct {
	deps  any
	value T
	ok    bool
}

// UseMemo caches compute's result until deps changes.
func UseMemo[T any](s *Scope, deps any, compute func() T) T {
	m := useSlot(s, HookMemo, func() *memo[T] { return &memo[T]{} })
	if !m.ok || !propsEqual(m.deps, deps) {
		m.value = compute()
		m.deps = deps
		m.ok = true
	}
	return m.value
}

type cleanupHook struct {
	fn func()
}

func (c *cleanupHook) dispose() {
	if c.fn != nil {
		c.fn()
	}
}

// OnCleanup registers fn to run when the scope is torn down. The latest
// fn passed for this hook slot wins.
func OnCleanup(s *Scope, fn func()) {
	h := useSlot(s, HookCleanup, func() *cleanupHook { return &cleanupHook{} })
	h.fn = fn
}

func contextKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ProvideContext makes v visible to s and its descendants.
func ProvideContext[T any](s *Scope, v T) {
	if s.contexts == nil {
		s.contexts = make(map[reflect.Type]any)
	}
	s.contexts[contextKey[T]()] = v
}

// ConsumeContext returns the nearest value of type T provided by s or one
// of its ancestors.
func ConsumeContext[T any](s *Scope) (T, bool) {
	key := contextKey[T]()
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.contexts[key]; ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}
