package vdom

// createVNode mounts v and leaves its renderer roots on the stack.
// It returns the number of roots pushed. A detached mount left behind by
// background rendering is reused so the scopes below it survive.
func (d *VirtualDom) createVNode(to *Mutations, v *VNode, parent *slotRef) int {
	v.normalize()
	m := v.mount
	if m == nil || !m.detached || m.node != v {
		m = d.newMount(v, parent)
		v.mount = m
	}
	m.parent = parent
	m.detached = to == nil
	d.registry.Register(v.Template)

	next, n := 0, 0
	for _, root := range v.Template.Roots {
		n += d.createTemplateNode(to, v, m, root, &next)
	}
	return n
}

func (d *VirtualDom) createTemplateNode(to *Mutations, v *VNode, m *mount, node TemplateNode, next *int) int {
	switch n := node.(type) {
	case Element:
		idx := *next
		*next++
		id := d.allocID(to, elementRef{m: m, static: idx, slot: -1})
		m.ids[idx] = id
		to.createElement(id, n.Tag, n.Namespace)
		for _, a := range n.Attrs {
			if !a.Dynamic {
				to.setAttribute(id, a.Name, a.Namespace, a.Value)
				continue
			}
			for _, attr := range v.DynamicAttrs[a.Slot] {
				createAttribute(to, id, attr)
			}
		}
		count := 0
		for _, c := range n.Children {
			count += d.createTemplateNode(to, v, m, c, next)
		}
		if count > 0 {
			to.appendChildren(id, count)
		}
		return 1

	case StaticText:
		idx := *next
		*next++
		id := d.allocID(to, elementRef{m: m, static: idx, slot: -1})
		m.ids[idx] = id
		to.createText(id, string(n))
		return 1

	case Dynamic:
		return d.createDynamic(to, m, n.Slot, v.DynamicNodes[n.Slot])

	case DynamicText:
		return d.createDynamic(to, m, n.Slot, v.DynamicNodes[n.Slot])
	}
	return 0
}

func createAttribute(to *Mutations, id ElementID, a Attribute) {
	if a.IsListener() {
		to.newEventListener(id, a.EventName())
		return
	}
	if a.Value == nil {
		return
	}
	to.setAttribute(id, a.Name, a.Namespace, a.Value)
}

func (d *VirtualDom) createDynamic(to *Mutations, m *mount, slot int, node DynamicNode) int {
	switch n := node.(type) {
	case Text:
		id := d.allocID(to, elementRef{m: m, static: -1, slot: slot})
		m.slots[slot].id = id
		to.createText(id, string(n))
		return 1

	case Placeholder:
		id := d.allocID(to, elementRef{m: m, static: -1, slot: slot})
		m.slots[slot].id = id
		to.createPlaceholder(id)
		return 1

	case Fragment:
		ref := &slotRef{m: m, slot: slot}
		count := 0
		for _, child := range n {
			count += d.createVNode(to, child, ref)
		}
		return count

	case Component:
		return d.createComponent(to, m, slot, n)
	}
	return 0
}

func (d *VirtualDom) createComponent(to *Mutations, m *mount, slot int, c Component) int {
	ref := &slotRef{m: m, slot: slot}
	if s := d.scope(m.slots[slot].scope); s != nil {
		s.slot = ref
		return d.realizeScope(to, s)
	}
	s := d.newScope(c, ref)
	m.slots[slot].scope = s.id
	return d.mountScope(to, s)
}

// mountScope runs a freshly created scope and creates its output.
func (d *VirtualDom) mountScope(to *Mutations, s *Scope) int {
	if s.suspense != nil {
		return d.mountSuspense(to, s)
	}
	v := d.runScope(s)
	s.rendered = v
	n := 0
	d.within(s, false, func() {
		n = d.createVNode(to, v, s.slot)
	})
	return n
}

// realizeScope creates renderer nodes for a scope that was rendered in the
// background, without running it again unless it is dirty.
func (d *VirtualDom) realizeScope(to *Mutations, s *Scope) int {
	if d.isDirty(s.id) {
		d.rerenderScope(nil, s)
	}
	fallback := s.suspense != nil && !s.suspense.showing
	n := 0
	d.within(s, fallback, func() {
		n = d.createVNode(to, s.rendered, s.slot)
	})
	return n
}
