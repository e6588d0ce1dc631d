package vdom

// diffNode transforms the mounted old into new, moving old's mount over.
func (d *VirtualDom) diffNode(to *Mutations, old, new *VNode) {
	if old == new {
		return
	}
	new.normalize()
	if old.mount == nil {
		// old was never mounted; nothing to reuse.
		d.createVNode(nil, new, nil)
		return
	}
	if old.Template != new.Template && old.Template.Name != new.Template.Name {
		d.replaceTemplate(to, old, new)
		return
	}

	m := old.mount
	new.mount = m
	m.node = new

	t := new.Template
	for slot := range new.DynamicAttrs {
		diffAttrs(to, m.ids[t.attrOwner[slot]], old.DynamicAttrs[slot], new.DynamicAttrs[slot])
	}
	for slot := range new.DynamicNodes {
		d.diffDynamic(to, m, slot, old.DynamicNodes[slot], new.DynamicNodes[slot])
	}
}

// replaceTemplate swaps in a VNode built from a different template.
func (d *VirtualDom) replaceTemplate(to *Mutations, old, new *VNode) {
	if d.lightDiff(to, old, new) {
		return
	}
	n := d.createVNode(to, new, old.mount.parent)
	d.removeNode(to, old, n, true)
}

// lightDiff handles templates made only of component roots. When every root
// renders the same component in both templates the scopes are kept and
// diffed in place instead of being recreated.
func (d *VirtualDom) lightDiff(to *Mutations, old, new *VNode) bool {
	ot, nt := old.Template, new.Template
	if len(ot.Roots) != len(nt.Roots) || len(ot.statics) > 0 || len(nt.statics) > 0 {
		return false
	}
	if len(ot.NodePaths) != len(ot.Roots) || len(nt.NodePaths) != len(nt.Roots) {
		return false
	}
	if len(ot.AttrPaths) > 0 || len(nt.AttrPaths) > 0 {
		return false
	}
	for i := range nt.Roots {
		slot := nt.rootSlot[i]
		if ot.rootSlot[i] != slot {
			return false
		}
		oc, ok := old.DynamicNodes[slot].(Component)
		if !ok {
			return false
		}
		nc, ok := new.DynamicNodes[slot].(Component)
		if !ok || !sameRender(oc, nc) {
			return false
		}
	}

	m := old.mount
	new.mount = m
	m.node = new
	for slot := range new.DynamicNodes {
		d.diffComponent(to, m, slot, new.DynamicNodes[slot].(Component))
	}
	return true
}

func (d *VirtualDom) diffDynamic(to *Mutations, m *mount, slot int, old, new DynamicNode) {
	switch o := old.(type) {
	case Text:
		if n, ok := new.(Text); ok {
			if o != n {
				to.setText(m.slots[slot].id, string(n))
			}
			return
		}
	case Placeholder:
		if _, ok := new.(Placeholder); ok {
			return
		}
	case Fragment:
		if n, ok := new.(Fragment); ok {
			d.diffChildren(to, m, slot, o, n)
			return
		}
	case Component:
		if n, ok := new.(Component); ok && sameRender(o, n) {
			d.diffComponent(to, m, slot, n)
			return
		}
	}
	d.replaceDynamic(to, m, slot, old, new)
}

// replaceDynamic creates new in the slot and then removes old, replacing
// old's first node with everything new pushed.
func (d *VirtualDom) replaceDynamic(to *Mutations, m *mount, slot int, old, new DynamicNode) {
	st := m.slots[slot]
	m.slots[slot] = slotState{}
	n := d.createDynamic(to, m, slot, new)
	r := &remover{d: d, to: to, replace: n, destroy: true}
	r.dynamic(m, slot, old, st, true)
}

// diffComponent reuses the scope in slot. The latest render function is
// always kept, so the next run sees what a closure captured most recently.
// The component re-runs now only when its props changed or it is already
// scheduled, which also takes it out of the dirty queue.
func (d *VirtualDom) diffComponent(to *Mutations, m *mount, slot int, c Component) {
	s := d.scope(m.slots[slot].scope)
	if s == nil {
		d.logger.Warn("vdom: component slot lost its scope", "component", c.Name)
		return
	}
	if s.slot == nil || s.slot.m != m || s.slot.slot != slot {
		s.slot = &slotRef{m: m, slot: slot}
	}
	s.render = c.Render
	if propsEqual(s.props, c.Props) && !d.isDirty(s.id) {
		return
	}
	s.props = c.Props
	d.rerenderScope(to, s)
}

// diffAttrs diffs one dynamic attribute group of element id. Removals are
// emitted before sets. Listeners are only added or removed; the handler
// itself is looked up from the latest VNode at dispatch time.
func diffAttrs(to *Mutations, id ElementID, old, new []Attribute) {
	for _, o := range old {
		if i := indexAttr(new, o); i >= 0 && new[i].Value != nil && new[i].IsListener() == o.IsListener() {
			continue
		}
		switch {
		case o.IsListener():
			to.removeEventListener(id, o.EventName())
		case o.Value != nil:
			to.removeAttribute(id, o.Name, o.Namespace)
		}
	}
	for _, n := range new {
		i := indexAttr(old, n)
		if n.IsListener() {
			if i < 0 || !old[i].IsListener() {
				to.newEventListener(id, n.EventName())
			}
			continue
		}
		if n.Value == nil {
			continue
		}
		if i >= 0 && !n.Volatile && !old[i].IsListener() && attrValueEqual(old[i].Value, n.Value) {
			continue
		}
		to.setAttribute(id, n.Name, n.Namespace, n.Value)
	}
}

func indexAttr(group []Attribute, a Attribute) int {
	for i := range group {
		if sameAttr(group[i], a) {
			return i
		}
	}
	return -1
}
