package vdom

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vango-dev/vcore/pkg/arena"
)

var (
	// ErrClosed is returned once the VirtualDom has been closed.
	ErrClosed = errors.New("vdom: closed")

	// ErrAlreadyBuilt is returned by a second call to Rebuild.
	ErrAlreadyBuilt = errors.New("vdom: already built")

	// ErrScopeNotFound is returned for a stale or unknown ScopeID.
	ErrScopeNotFound = errors.New("vdom: scope not found")
)

// Observer receives engine statistics. Implementations must be cheap; they
// run on the scheduler goroutine.
type Observer interface {
	ScopeRendered(name string, suspended bool, d time.Duration)
	TaskPolled(done bool)
	TickCompleted(mutations int, d time.Duration)
	EventDispatched(name string, listeners int)
}

type nopObserver struct{}

func (nopObserver) ScopeRendered(string, bool, time.Duration) {}
func (nopObserver) TaskPolled(bool)                            {}
func (nopObserver) TickCompleted(int, time.Duration)           {}
func (nopObserver) EventDispatched(string, int)                {}

// Option configures a VirtualDom.
type Option func(*VirtualDom)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *VirtualDom) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver installs an Observer for metrics.
func WithObserver(o Observer) Option {
	return func(d *VirtualDom) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithErrorHandler sets a function called for render errors that no
// ErrorBoundary caught.
func WithErrorHandler(fn func(scope ScopeID, err error)) Option {
	return func(d *VirtualDom) {
		d.onError = fn
	}
}

// WithRegistry shares a template registry between VirtualDoms.
func WithRegistry(r *Registry) Option {
	return func(d *VirtualDom) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithContext sets the parent context of every task started with Scope.Go
// or UseFuture.
func WithContext(ctx context.Context) Option {
	return func(d *VirtualDom) {
		if ctx != nil {
			d.ctx = ctx
		}
	}
}

// VirtualDom owns one component tree: its scopes, its element ids, its
// tasks and the scheduler that drives them. All methods except Wake must be
// called from a single goroutine.
type VirtualDom struct {
	logger   *slog.Logger
	observer Observer
	registry *Registry
	onError  func(ScopeID, error)

	scopes   *arena.Arena[*Scope]
	elements *arena.Arena[elementRef]
	tasks    *arena.Arena[*task]

	queue dirtyQueue
	dirty map[ScopeID]uint64
	seq   uint64
	wake  *wakeQueue
	// deferred holds scopes marked while a component body was running.
	deferred []ScopeID

	// current is the scope whose render function is running.
	current *Scope
	// owner becomes the parent of scopes created during diffing.
	owner      *Scope
	fallbackOf *Scope

	rootRender RenderFunc
	rootProps  any
	root       *Scope

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a VirtualDom whose root component is render with props.
// Nothing is rendered until Rebuild.
func New(render RenderFunc, props any, opts ...Option) *VirtualDom {
	d := &VirtualDom{
		logger:     slog.Default(),
		observer:   nopObserver{},
		scopes:     arena.New[*Scope](),
		elements:   arena.New[elementRef](),
		tasks:      arena.New[*task](),
		dirty:      make(map[ScopeID]uint64),
		wake:       newWakeQueue(),
		rootRender: render,
		rootProps:  props,
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	d.ctx, d.cancel = context.WithCancel(d.ctx)
	return d
}

// Rebuild renders the whole tree for the first time and appends its roots
// to the renderer's root container (ElementID 0).
func (d *VirtualDom) Rebuild(to *Mutations) error {
	if d.closed {
		return ErrClosed
	}
	if d.root != nil {
		return ErrAlreadyBuilt
	}
	start := time.Now()
	before := to.Len()

	d.root = d.newScope(Component{Name: "Root", Render: d.rootRender, Props: d.rootProps}, nil)
	n := d.mountScope(to, d.root)
	to.appendChildren(0, n)
	d.flushDeferred()

	d.observer.TickCompleted(to.Len()-before, time.Since(start))
	return nil
}

// Spawn runs f as a task owned by scope.
func (d *VirtualDom) Spawn(scope ScopeID, f Future) (TaskID, error) {
	if d.closed {
		return 0, ErrClosed
	}
	s := d.scope(scope)
	if s == nil {
		return 0, ErrScopeNotFound
	}
	return d.spawn(s, f, nil), nil
}

// Close tears down every scope, cancels every task and stops WaitForWork.
// No mutations are produced; the renderer is expected to drop its tree.
func (d *VirtualDom) Close() {
	if d.closed {
		return
	}
	if d.root != nil {
		d.teardown(d.root)
		d.root = nil
	}
	d.closed = true
	d.cancel()
}

// Registry returns the template registry.
func (d *VirtualDom) Registry() *Registry { return d.registry }

// Root returns the root scope, or nil before Rebuild.
func (d *VirtualDom) Root() *Scope { return d.root }

// Scope returns the live scope with the given id.
func (d *VirtualDom) Scope(id ScopeID) (*Scope, bool) {
	s := d.scope(id)
	return s, s != nil
}

// Logger returns the logger used by the VirtualDom.
func (d *VirtualDom) Logger() *slog.Logger { return d.logger }

// ElementCount returns the number of live element ids.
func (d *VirtualDom) ElementCount() int { return d.elements.Len() }

// ScopeCount returns the number of live scopes.
func (d *VirtualDom) ScopeCount() int { return d.scopes.Len() }

// TaskCount returns the number of unfinished tasks.
func (d *VirtualDom) TaskCount() int { return d.tasks.Len() }
