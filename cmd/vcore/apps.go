package main

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// apps are the demo applications selectable with serve --app.
var apps = map[string]vdom.RenderFunc{
	"counter": counterApp,
	"todo":    todoApp,
}

func appNames() string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var counterTemplate = vdom.NewTemplate("demo:counter",
	vdom.El("section", vdom.StaticAttr("class", "counter"),
		vdom.El("h1", "Counter"),
		vdom.El("p", vdom.DynText(0)),
		vdom.El("button", vdom.DynAttr(0), "-"),
		vdom.El("button", vdom.DynAttr(1), "+"),
	))

func counterApp(s *vdom.Scope) (*vdom.VNode, error) {
	n := vdom.UseState(s, func() int { return 0 })
	add := func(delta int) vdom.EventHandler {
		return func(*vdom.Event) {
			n.Update(func(v int) int { return v + delta })
		}
	}
	return vdom.NewVNode("", counterTemplate,
		[]vdom.DynamicNode{vdom.Text(strconv.Itoa(n.Get()))},
		[][]vdom.Attribute{{vdom.OnClick(add(-1))}, {vdom.OnClick(add(1))}},
	), nil
}

type todo struct {
	ID   int
	Text string
	Done bool
}

var (
	todoTemplate = vdom.NewTemplate("demo:todo",
		vdom.El("section", vdom.StaticAttr("class", "todo"),
			vdom.El("form", vdom.DynAttr(0),
				vdom.El("input", vdom.StaticAttr("placeholder", "What needs doing?"), vdom.DynAttr(1)),
				vdom.El("button", vdom.StaticAttr("type", "submit"), "Add"),
			),
			vdom.El("ul", vdom.Dyn(0)),
			vdom.El("footer",
				vdom.El("span", vdom.DynText(1)),
				vdom.El("button", vdom.DynAttr(2), "Shuffle"),
			),
		))

	todoItemTemplate = vdom.NewTemplate("demo:todo-item",
		vdom.El("li", vdom.DynAttr(0),
			vdom.El("input", vdom.StaticAttr("type", "checkbox"), vdom.DynAttr(1)),
			vdom.El("span", vdom.DynText(0)),
			vdom.El("button", vdom.DynAttr(2), "x"),
		))
)

type todoItemProps struct {
	Item   todo
	Toggle func(id int)
	Remove func(id int)
}

func todoItem(s *vdom.Scope) (*vdom.VNode, error) {
	p := vdom.PropsOf[todoItemProps](s)
	class := "pending"
	if p.Item.Done {
		class = "done"
	}
	return vdom.NewVNode("", todoItemTemplate,
		[]vdom.DynamicNode{vdom.Text(p.Item.Text)},
		[][]vdom.Attribute{
			{vdom.Class(class)},
			{vdom.Checked(p.Item.Done), vdom.OnChange(func(*vdom.Event) { p.Toggle(p.Item.ID) })},
			{vdom.OnClick(func(*vdom.Event) { p.Remove(p.Item.ID) })},
		},
	), nil
}

func todoApp(s *vdom.Scope) (*vdom.VNode, error) {
	items := vdom.UseState(s, func() []todo { return nil })
	draft := vdom.UseState(s, func() string { return "" })
	nextID := vdom.UseHook(s, func() int { return 1 })

	edit := func(fn func([]todo) []todo) {
		items.Update(func(list []todo) []todo {
			return fn(append([]todo(nil), list...))
		})
	}
	toggle := func(id int) {
		edit(func(list []todo) []todo {
			for i := range list {
				if list[i].ID == id {
					list[i].Done = !list[i].Done
				}
			}
			return list
		})
	}
	remove := func(id int) {
		edit(func(list []todo) []todo {
			out := list[:0]
			for _, it := range list {
				if it.ID != id {
					out = append(out, it)
				}
			}
			return out
		})
	}

	list := items.Get()
	rows := vdom.Range(list, func(it todo, _ int) *vdom.VNode {
		return vdom.NewVNode(strconv.Itoa(it.ID), rowTemplate,
			[]vdom.DynamicNode{vdom.C("todo-item", todoItem, todoItemProps{Item: it, Toggle: toggle, Remove: remove})},
			nil)
	})

	left := 0
	for _, it := range list {
		if !it.Done {
			left++
		}
	}

	return vdom.NewVNode("", todoTemplate,
		[]vdom.DynamicNode{rows, vdom.Text(fmt.Sprintf("%d of %d left", left, len(list)))},
		[][]vdom.Attribute{
			{vdom.OnSubmit(func(e *vdom.Event) {
				e.PreventDefault()
				text := strings.TrimSpace(draft.Peek())
				if text == "" {
					return
				}
				id := *nextID
				*nextID++
				edit(func(list []todo) []todo { return append(list, todo{ID: id, Text: text}) })
				draft.Set("")
			})},
			{vdom.Value(draft.Get()), vdom.OnInput(func(e *vdom.Event) {
				draft.Set(eventValue(e.Data))
			})},
			{vdom.OnClick(func(*vdom.Event) {
				edit(func(list []todo) []todo {
					rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
					return list
				})
			})},
		},
	), nil
}

// rowTemplate wraps one component so that rows can carry keys.
var rowTemplate = vdom.NewTemplate("demo:todo-row", vdom.Dyn(0))

// eventValue extracts the input value from event data sent by the client
// script: either a bare string or an object with a "value" field.
func eventValue(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case map[string]any:
		s, _ := v["value"].(string)
		return s
	}
	return ""
}
