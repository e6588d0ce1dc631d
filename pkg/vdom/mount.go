package vdom

// mount is the live state of a mounted VNode: the element ids of its static
// nodes and the ids or scopes behind each dynamic slot. When a VNode is
// diffed against its successor the mount moves to the new VNode, so
// element references into it stay valid.
type mount struct {
	dom    *VirtualDom
	node   *VNode
	parent *slotRef

	// ids holds one id per template static node, in pre-order.
	ids   []ElementID
	slots []slotState

	// detached mounts keep their scopes but own no renderer nodes.
	detached bool
}

type slotState struct {
	id    ElementID
	scope ScopeID
}

// slotRef points at one dynamic slot of a mount.
type slotRef struct {
	m    *mount
	slot int
}

// elementRef is the inverse index entry for an ElementID.
type elementRef struct {
	m      *mount
	static int
	slot   int
}

func (r elementRef) path() []byte {
	t := r.m.node.Template
	if r.static >= 0 {
		return t.statics[r.static].path
	}
	return t.NodePaths[r.slot]
}

func (d *VirtualDom) newMount(v *VNode, parent *slotRef) *mount {
	return &mount{
		dom:    d,
		node:   v,
		parent: parent,
		ids:    make([]ElementID, len(v.Template.statics)),
		slots:  make([]slotState, len(v.DynamicNodes)),
	}
}

// allocID registers a new element. Background rendering allocates nothing.
func (d *VirtualDom) allocID(to *Mutations, ref elementRef) ElementID {
	if to == nil {
		return 0
	}
	return ElementID(d.elements.Insert(ref).Uint64())
}

func (d *VirtualDom) reclaim(id ElementID) {
	if id == 0 {
		return
	}
	d.elements.Remove(id.key())
}

func (m *mount) rootFirst(i int) ElementID {
	t := m.node.Template
	if idx := t.rootStatic[i]; idx >= 0 {
		return m.ids[idx]
	}
	slot := t.rootSlot[i]
	return m.dom.slotEdge(m, slot, m.node.DynamicNodes[slot], true)
}

// findFirst returns the first renderer node of v.
func (d *VirtualDom) findFirst(v *VNode) ElementID {
	return d.rootEdge(v, true)
}

// findLast returns the last renderer node of v.
func (d *VirtualDom) findLast(v *VNode) ElementID {
	return d.rootEdge(v, false)
}

func (d *VirtualDom) rootEdge(v *VNode, first bool) ElementID {
	m, t := v.mount, v.Template
	if m == nil {
		return 0
	}
	i := 0
	if !first {
		i = len(t.Roots) - 1
	}
	if idx := t.rootStatic[i]; idx >= 0 {
		return m.ids[idx]
	}
	slot := t.rootSlot[i]
	return d.slotEdge(m, slot, v.DynamicNodes[slot], first)
}

func (d *VirtualDom) slotEdge(m *mount, slot int, n DynamicNode, first bool) ElementID {
	switch n := n.(type) {
	case Fragment:
		if first {
			return d.rootEdge(n[0], true)
		}
		return d.rootEdge(n[len(n)-1], false)
	case Component:
		s := d.scope(m.slots[slot].scope)
		if s == nil || s.rendered == nil {
			return 0
		}
		return d.rootEdge(s.rendered, first)
	default:
		return m.slots[slot].id
	}
}

// pushRoots re-pushes every renderer root of v and returns how many.
func (d *VirtualDom) pushRoots(to *Mutations, v *VNode) int {
	m, t := v.mount, v.Template
	n := 0
	for i := range t.Roots {
		if idx := t.rootStatic[i]; idx >= 0 {
			to.pushRoot(m.ids[idx])
			n++
			continue
		}
		slot := t.rootSlot[i]
		switch node := v.DynamicNodes[slot].(type) {
		case Fragment:
			for _, c := range node {
				n += d.pushRoots(to, c)
			}
		case Component:
			if s := d.scope(m.slots[slot].scope); s != nil && s.rendered != nil {
				n += d.pushRoots(to, s.rendered)
			}
		default:
			to.pushRoot(m.slots[slot].id)
			n++
		}
	}
	return n
}
