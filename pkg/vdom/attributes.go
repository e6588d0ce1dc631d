package vdom

import (
	"strings"
)

// Attribute is one dynamic attribute value.
//
// Value may be a string, bool, integer, float, nil (attribute absent) or an
// EventHandler, which makes the attribute a listener for the event named by
// Name without its "on" prefix.
type Attribute struct {
	Name      string
	Namespace string
	Value     any
	Volatile  bool
}

// EventHandler handles one dispatched event.
type EventHandler func(e *Event)

// IsListener reports whether a is an event listener.
func (a Attribute) IsListener() bool {
	_, ok := a.Value.(EventHandler)
	return ok
}

// EventName returns the event a listener attribute handles.
func (a Attribute) EventName() string {
	return strings.TrimPrefix(a.Name, "on")
}

func attr(name string, value any) Attribute {
	return Attribute{Name: name, Value: value}
}

// Attr creates an attribute.
func Attr(name string, value any) Attribute { return attr(name, value) }

// AttrNS creates a namespaced attribute.
func AttrNS(namespace, name string, value any) Attribute {
	return Attribute{Name: name, Namespace: namespace, Value: value}
}

// VolatileAttr creates an attribute that is re-applied on every diff,
// for values the renderer can change behind the engine's back.
func VolatileAttr(name string, value any) Attribute {
	return Attribute{Name: name, Value: value, Volatile: true}
}

// ID sets the id attribute.
func ID(id string) Attribute { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attribute { return attr("class", strings.Join(classes, " ")) }

// Data creates a data-* attribute.
func Data(key, value string) Attribute { return attr("data-"+key, value) }

// Disabled sets the disabled attribute.
func Disabled(disabled bool) Attribute { return attr("disabled", disabled) }

// Value sets an input's value. It is volatile because user input changes it.
func Value(value string) Attribute { return VolatileAttr("value", value) }

// Checked sets a checkbox's checked state. It is volatile like Value.
func Checked(checked bool) Attribute { return VolatileAttr("checked", checked) }

// On creates a listener for the named event.
func On(event string, handler EventHandler) Attribute {
	return Attribute{Name: "on" + event, Value: handler}
}

// OnClick handles click events.
func OnClick(handler EventHandler) Attribute { return On("click", handler) }

// OnInput handles input events.
func OnInput(handler EventHandler) Attribute { return On("input", handler) }

// OnChange handles change events.
func OnChange(handler EventHandler) Attribute { return On("change", handler) }

// OnSubmit handles submit events.
func OnSubmit(handler EventHandler) Attribute { return On("submit", handler) }

// OnKeyDown handles keydown events.
func OnKeyDown(handler EventHandler) Attribute { return On("keydown", handler) }

func sameAttr(a, b Attribute) bool {
	return a.Name == b.Name && a.Namespace == b.Namespace
}

// attrValueEqual compares two non-listener attribute values.
func attrValueEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return propsEqual(a, b)
}
