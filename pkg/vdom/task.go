package vdom

import (
	"context"
	"errors"
	"sync"
)

// Future is a unit of asynchronous work driven by the scheduler. Poll is
// called on the scheduler goroutine and must not block; it reports whether
// the work is complete. An incomplete future arranges for w.Wake to be
// called once it can make progress.
type Future interface {
	Poll(w Waker) bool
}

// FutureFunc adapts a function to Future.
type FutureFunc func(w Waker) bool

// Poll calls f.
func (f FutureFunc) Poll(w Waker) bool { return f(w) }

// Canceler is implemented by futures that hold resources beyond their
// owning scope's lifetime. Cancel is called when the owner is torn down.
type Canceler interface {
	Cancel()
}

// Waker reschedules one task. It is safe to use from any goroutine and to
// keep after the task finished.
type Waker struct {
	q  *wakeQueue
	id TaskID
}

// Wake queues the task to be polled on the next tick.
func (w Waker) Wake() {
	if w.q != nil {
		w.q.wake(w.id)
	}
}

// Task returns the id of the task this waker belongs to.
func (w Waker) Task() TaskID { return w.id }

// wakeQueue is the only scheduler state shared with other goroutines.
type wakeQueue struct {
	mu     sync.Mutex
	ids    []TaskID
	set    map[TaskID]struct{}
	notify chan struct{}
}

func newWakeQueue() *wakeQueue {
	return &wakeQueue{
		set:    make(map[TaskID]struct{}),
		notify: make(chan struct{}, 1),
	}
}

func (q *wakeQueue) wake(id TaskID) {
	q.mu.Lock()
	if _, ok := q.set[id]; !ok {
		q.set[id] = struct{}{}
		q.ids = append(q.ids, id)
	}
	q.mu.Unlock()
	q.signal()
}

func (q *wakeQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *wakeQueue) drain() []TaskID {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.ids
	q.ids = nil
	clear(q.set)
	return ids
}

func (q *wakeQueue) pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids) > 0
}

type task struct {
	id       TaskID
	scope    *Scope
	fut      Future
	boundary ScopeID
	onDone   func()
}

func (d *VirtualDom) task(id TaskID) *task {
	if id == 0 {
		return nil
	}
	t, ok := d.tasks.Get(id.key())
	if !ok {
		return nil
	}
	return t
}

// spawn registers f as owned by s and queues its first poll.
func (d *VirtualDom) spawn(s *Scope, f Future, onDone func()) TaskID {
	t := &task{scope: s, fut: f, onDone: onDone}
	t.id = TaskID(d.tasks.Insert(t).Uint64())
	s.tasks[t.id] = struct{}{}
	d.wake.wake(t.id)
	return t.id
}

// Spawn runs f as a task owned by s.
func (s *Scope) Spawn(f Future) TaskID {
	return s.dom.spawn(s, f, nil)
}

// Go runs fn on its own goroutine as a task owned by s. The context is
// cancelled when s is torn down or the VirtualDom is closed.
func (s *Scope) Go(fn func(ctx context.Context) error) TaskID {
	f := newTaskFuture(s.dom.ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return s.dom.spawn(s, f, func() {
		if _, err := f.result(); err != nil && !errors.Is(err, context.Canceled) {
			s.dom.logger.Warn("vdom: task failed", "scope", s.name, "error", err)
		}
	})
}

func (d *VirtualDom) cancelTasks(s *Scope) {
	for id := range s.tasks {
		d.dropTask(id, false)
	}
}

// dropTask forgets a task. Unfinished futures are cancelled and never
// polled again; a suspense boundary waiting on the task is re-evaluated
// once nothing else is pending.
func (d *VirtualDom) dropTask(id TaskID, completed bool) {
	t, ok := d.tasks.Remove(id.key())
	if !ok {
		return
	}
	delete(t.scope.tasks, id)
	if !completed {
		if c, ok := t.fut.(Canceler); ok {
			c.Cancel()
		}
	}
	if b := d.scope(t.boundary); b != nil && b.suspense != nil {
		if _, waiting := b.suspense.pending[id]; waiting {
			delete(b.suspense.pending, id)
			if len(b.suspense.pending) == 0 {
				d.MarkDirty(b.id)
			}
		}
	}
}

// pollTasks polls every woken task once.
func (d *VirtualDom) pollTasks() {
	for _, id := range d.wake.drain() {
		t := d.task(id)
		if t == nil {
			continue
		}
		done := d.poll(t)
		d.observer.TaskPolled(done)
		if !done {
			continue
		}
		d.dropTask(id, true)
		if t.onDone != nil {
			t.onDone()
		}
	}
}

func (d *VirtualDom) poll(t *task) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("vdom: task panic", "scope", t.scope.name, "task", t.id.String(), "panic", r)
			done = true
		}
	}()
	return t.fut.Poll(Waker{q: d.wake, id: t.id})
}

// taskFuture runs a function on its own goroutine.
type taskFuture[T any] struct {
	fn      func(ctx context.Context) (T, error)
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	mu    sync.Mutex
	done  bool
	value T
	err   error
}

func newTaskFuture[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *taskFuture[T] {
	ctx, cancel := context.WithCancel(parent)
	return &taskFuture[T]{fn: fn, ctx: ctx, cancel: cancel}
}

func (f *taskFuture[T]) Poll(w Waker) bool {
	if !f.started {
		f.started = true
		go func() {
			v, err := f.fn(f.ctx)
			f.mu.Lock()
			f.value, f.err, f.done = v, err, true
			f.mu.Unlock()
			w.Wake()
		}()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		f.cancel()
	}
	return f.done
}

func (f *taskFuture[T]) Cancel() {
	f.cancel()
}

func (f *taskFuture[T]) result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Resource is the state of a UseFuture hook.
type Resource[T any] struct {
	s     *Scope
	fn    func(ctx context.Context) (T, error)
	task  TaskID
	ready bool
	value T
	err   error
}

// UseFuture starts fn on the first render and re-renders the scope when it
// finishes. Call Suspend to wait for the value inside a Suspense boundary.
func UseFuture[T any](s *Scope, fn func(ctx context.Context) (T, error)) *Resource[T] {
	return useSlot(s, HookFuture, func() *Resource[T] {
		r := &Resource[T]{s: s, fn: fn}
		r.start()
		return r
	})
}

func (r *Resource[T]) start() {
	f := newTaskFuture(r.s.dom.ctx, r.fn)
	r.ready = false
	r.task = r.s.dom.spawn(r.s, f, func() {
		r.value, r.err = f.result()
		r.ready = true
		r.s.MarkDirty()
	})
}

// Ready reports whether the future has finished.
func (r *Resource[T]) Ready() bool { return r.ready }

// Value returns the result once ready.
func (r *Resource[T]) Value() (T, bool) { return r.value, r.ready }

// Err returns the error the future finished with.
func (r *Resource[T]) Err() error { return r.err }

// Task returns the id of the task driving the current run.
func (r *Resource[T]) Task() TaskID { return r.task }

// Suspend returns the result, or a SuspendedError while still pending.
// Return the error from the render function to suspend the scope.
func (r *Resource[T]) Suspend() (T, error) {
	if !r.ready {
		var zero T
		return zero, &SuspendedError{Task: r.task}
	}
	return r.value, r.err
}

// Restart cancels the current run and starts fn again.
func (r *Resource[T]) Restart() {
	r.s.dom.dropTask(r.task, false)
	r.start()
	r.s.MarkDirty()
}
