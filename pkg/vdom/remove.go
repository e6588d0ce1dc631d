package vdom

// remover tears down mounted nodes. Only the outermost roots produce
// mutations; the renderer drops their subtrees itself, while every nested
// id is reclaimed here.
type remover struct {
	d       *VirtualDom
	to      *Mutations
	replace int
	destroy bool
}

// removeNode removes v. If replace > 0 the first root is replaced by the
// top replace nodes of the stack instead of being removed. With destroy
// false the scopes below v survive and v's mount is only detached.
func (d *VirtualDom) removeNode(to *Mutations, v *VNode, replace int, destroy bool) {
	r := &remover{d: d, to: to, replace: replace, destroy: destroy}
	r.vnode(v, true)
}

// teardown destroys s and everything below it without emitting mutations.
func (d *VirtualDom) teardown(s *Scope) {
	r := &remover{d: d, destroy: true}
	r.scope(s, false)
}

func (r *remover) emit(id ElementID) {
	if id == 0 {
		return
	}
	if r.replace > 0 {
		r.to.replaceWith(id, r.replace)
		r.replace = 0
		return
	}
	r.to.remove(id)
}

func (r *remover) vnode(v *VNode, emit bool) {
	m := v.mount
	if m == nil {
		return
	}
	t := v.Template
	for i := range t.Roots {
		if idx := t.rootStatic[i]; idx >= 0 {
			if emit {
				r.emit(m.ids[idx])
			}
			continue
		}
		slot := t.rootSlot[i]
		r.dynamic(m, slot, v.DynamicNodes[slot], m.slots[slot], emit)
	}
	for slot, n := range v.DynamicNodes {
		if !t.rootSlots[slot] {
			r.dynamic(m, slot, n, m.slots[slot], false)
		}
	}
	for i, id := range m.ids {
		r.d.reclaim(id)
		m.ids[i] = 0
	}
	if r.destroy {
		v.mount = nil
	} else {
		m.detached = true
	}
}

// dynamic removes the content of one slot. st is passed separately because
// a replaced slot has already been overwritten by its successor.
func (r *remover) dynamic(m *mount, slot int, n DynamicNode, st slotState, emit bool) {
	switch n := n.(type) {
	case Fragment:
		for _, child := range n {
			r.vnode(child, emit)
		}
	case Component:
		if s := r.d.scope(st.scope); s != nil {
			r.scope(s, emit)
		}
	default:
		if emit {
			r.emit(st.id)
		}
		r.d.reclaim(st.id)
		if m.slots[slot].id == st.id {
			m.slots[slot].id = 0
		}
	}
}

// scope removes the output of s. When destroying, the scope's own tasks are
// dropped before any descendant is touched and its hooks are cleaned up
// after all descendants are gone.
func (r *remover) scope(s *Scope, emit bool) {
	if r.destroy {
		r.d.cancelTasks(s)
	}
	if s.rendered != nil {
		r.vnode(s.rendered, emit)
	}
	if b := s.suspense; b != nil && !b.showing && b.children != nil {
		r.vnode(b.children, false)
	}
	if r.destroy {
		r.d.dropScope(s)
	}
}
