package vdom

import (
	"bytes"

	verrors "github.com/vango-dev/vcore/internal/errors"
)

// Event is a renderer event being dispatched to listeners.
type Event struct {
	Name string
	Data any

	// Target is the element the event was raised on, CurrentTarget the
	// element whose listener is running.
	Target        ElementID
	CurrentTarget ElementID

	bubbles          bool
	stopped          bool
	defaultPrevented bool
}

// StopPropagation keeps the event from reaching ancestors of the current
// element. Other listeners on the current element still run.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault records that the renderer should skip its default action.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// Propagates reports whether the event will still reach ancestors.
func (e *Event) Propagates() bool { return e.bubbles && !e.stopped }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

type listener struct {
	el ElementID
	fn EventHandler
}

// HandleEvent dispatches an event raised by the renderer on target.
//
// Listeners on the target run first, then those of each ancestor up to the
// root if bubbles is set, crossing component boundaries. Handlers are read
// from the latest committed VNodes. Listeners only schedule work: nothing
// is re-rendered until the next Tick. HandleEvent returns nil if target is
// unknown, e.g. an id that was already removed.
func (d *VirtualDom) HandleEvent(name string, data any, target ElementID, bubbles bool) *Event {
	ref, ok := d.elements.Get(target.key())
	if !ok || target == 0 {
		d.logger.Debug("vdom: event for unknown element", "event", name, "target", target.String())
		return nil
	}
	e := &Event{Name: name, Data: data, Target: target, bubbles: bubbles}

	m, path, self := ref.m, ref.path(), ref.static >= 0
	total := 0
	for m != nil {
		for _, level := range d.listenersAt(m, path, name, self, bubbles) {
			for _, l := range level {
				e.CurrentTarget = l.el
				d.runListener(e, l.fn)
				total++
			}
			if !e.Propagates() {
				d.observer.EventDispatched(name, total)
				return e
			}
		}
		if !bubbles || m.parent == nil {
			break
		}
		path = m.parent.m.node.Template.NodePaths[m.parent.slot]
		m = m.parent.m
		self = false
	}
	d.observer.EventDispatched(name, total)
	return e
}

// listenersAt groups the listeners for name on the elements of m that
// contain path, deepest element first. self means path is itself an element
// of m and may carry listeners.
func (d *VirtualDom) listenersAt(m *mount, path []byte, name string, self, bubbles bool) [][]listener {
	v := m.node
	t := v.Template
	byDepth := make(map[int][]listener)
	depths := []int{}
	for slot, ap := range t.AttrPaths {
		if len(ap) > len(path) || !bytes.HasPrefix(path, ap) {
			continue
		}
		if len(ap) == len(path) && !self {
			continue
		}
		if !bubbles && len(ap) != len(path) {
			continue
		}
		for _, a := range v.DynamicAttrs[slot] {
			fn, ok := a.Value.(EventHandler)
			if !ok || a.EventName() != name {
				continue
			}
			depth := len(ap)
			if _, seen := byDepth[depth]; !seen {
				depths = append(depths, depth)
			}
			byDepth[depth] = append(byDepth[depth], listener{el: m.ids[t.attrOwner[slot]], fn: fn})
		}
	}
	if len(depths) == 0 {
		return nil
	}
	levels := make([][]listener, 0, len(depths))
	for len(depths) > 0 {
		deepest := 0
		for i, dep := range depths {
			if dep > depths[deepest] {
				deepest = i
			}
		}
		levels = append(levels, byDepth[depths[deepest]])
		depths = append(depths[:deepest], depths[deepest+1:]...)
	}
	return levels
}

func (d *VirtualDom) runListener(e *Event, fn EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("vdom: "+verrors.New("E402").FormatCompact(),
				"event", e.Name,
				"element", e.CurrentTarget.String(),
				"panic", r)
		}
	}()
	fn(e)
}
