package vdom

import (
	"container/heap"
	"context"
	"math"
	"time"
)

type dirtyEntry struct {
	id     ScopeID
	height int
	seq    uint64
}

// dirtyQueue orders dirty scopes shallowest first, then by the order they
// were marked. Entries are removed lazily: an entry is live only while
// its seq matches the one recorded in VirtualDom.dirty.
type dirtyQueue []dirtyEntry

func (q dirtyQueue) Len() int { return len(q) }

func (q dirtyQueue) Less(i, j int) bool {
	if q[i].height != q[j].height {
		return q[i].height < q[j].height
	}
	return q[i].seq < q[j].seq
}

func (q dirtyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *dirtyQueue) Push(x any) { *q = append(*q, x.(dirtyEntry)) }

func (q *dirtyQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// MarkDirty schedules scope id to re-render on the next tick. Marking a
// scope that is already dirty or no longer exists does nothing.
//
// Marks made while a component body runs are held back until the current
// level has drained, so a render that writes state it reads cannot run
// again within the same tick.
func (d *VirtualDom) MarkDirty(id ScopeID) {
	s := d.scope(id)
	if s == nil {
		return
	}
	if _, ok := d.dirty[id]; ok {
		return
	}
	if d.current != nil {
		d.deferred = append(d.deferred, id)
		return
	}
	d.seq++
	d.dirty[id] = d.seq
	heap.Push(&d.queue, dirtyEntry{id: id, height: s.height, seq: d.seq})
	d.wake.signal()
}

// flushDeferred queues the marks held back during rendering.
func (d *VirtualDom) flushDeferred() {
	ids := d.deferred
	d.deferred = nil
	for _, id := range ids {
		d.MarkDirty(id)
	}
}

func (d *VirtualDom) clearDirty(id ScopeID) {
	delete(d.dirty, id)
}

func (d *VirtualDom) isDirty(id ScopeID) bool {
	_, ok := d.dirty[id]
	return ok
}

// nextDirty pops the shallowest live dirty scope if its height is at most
// limit.
func (d *VirtualDom) nextDirty(limit int) *Scope {
	for d.queue.Len() > 0 {
		e := d.queue[0]
		if seq, ok := d.dirty[e.id]; !ok || seq != e.seq {
			heap.Pop(&d.queue)
			continue
		}
		if e.height > limit {
			return nil
		}
		heap.Pop(&d.queue)
		s := d.scope(e.id)
		if s == nil {
			delete(d.dirty, e.id)
			continue
		}
		return s
	}
	return nil
}

// HasPendingWork reports whether a tick would do anything right now.
func (d *VirtualDom) HasPendingWork() bool {
	return len(d.dirty) > 0 || d.wake.pending()
}

// Tick runs one unit of work and reports whether more is pending.
//
// It re-renders every dirty scope at the shallowest dirty height,
// including scopes dirtied at that height by another scope's event or
// task while the level drains, and writes the edits to to. State written
// by a component body while it renders is picked up by the next tick. Then it polls every woken task once. A scope
// re-rendered by its parent is taken out of the dirty set, and scopes
// hidden behind a suspense fallback render without emitting anything.
func (d *VirtualDom) Tick(to *Mutations) bool {
	if d.root == nil || d.closed {
		return false
	}
	start := time.Now()
	before := to.Len()
	worked := false

	if s := d.nextDirty(math.MaxInt); s != nil {
		level := s.height
		for ; s != nil; s = d.nextDirty(level) {
			worked = true
			sink := to
			if d.isBackground(s) {
				sink = nil
			}
			d.rerenderScope(sink, s)
		}
		d.flushDeferred()
	}
	if d.wake.pending() {
		worked = true
		d.pollTasks()
	}

	if worked {
		d.observer.TickCompleted(to.Len()-before, time.Since(start))
	}
	return d.HasPendingWork()
}

// RenderImmediate ticks until no task is woken and no scope is dirty.
// Tasks waiting on other goroutines are not waited for.
func (d *VirtualDom) RenderImmediate(to *Mutations) {
	for d.Tick(to) {
	}
}

// Wake queues task id for polling. It is safe to call from any goroutine.
func (d *VirtualDom) Wake(id TaskID) {
	d.wake.wake(id)
}

// WaitForWork blocks until a task was woken or a scope marked dirty, or
// until ctx is done.
func (d *VirtualDom) WaitForWork(ctx context.Context) error {
	for !d.HasPendingWork() {
		select {
		case <-d.wake.notify:
		case <-ctx.Done():
			return ctx.Err()
		case <-d.ctx.Done():
			return ErrClosed
		}
	}
	return nil
}

// Notify returns a channel that receives whenever work may have become
// available. Receiving consumes the signal, so a host selects on it and
// then checks HasPendingWork.
func (d *VirtualDom) Notify() <-chan struct{} {
	return d.wake.notify
}
