package vdom_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vcore/pkg/vdom"
)

var labelTemplate = vdom.NewTemplate("diff-test:label",
	vdom.El("p", vdom.DynAttr(0), vdom.DynText(0)),
)

func TestSetTextOnly(t *testing.T) {
	var text *vdom.State[string]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		text = vdom.UseState(s, func() string { return "a" })
		return vdom.NewVNode("", labelTemplate,
			[]vdom.DynamicNode{vdom.Text(text.Get())},
			[][]vdom.Attribute{{vdom.Class("label")}},
		), nil
	})
	textID := h.find("p").Children[0].ID

	text.Set("b")
	got := h.tick()

	want := []vdom.Mutation{{Op: vdom.OpSetText, ID: textID, Text: "b"}}
	if diff := cmp.Diff(want, got.Edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
	if html := h.html(); html != `<p class="label">b</p>` {
		t.Errorf("html = %q", html)
	}
}

var pageTemplate = vdom.NewTemplate("diff-test:page",
	vdom.El("div",
		vdom.El("h1", "Title"),
		vdom.Dyn(0),
		vdom.El("button", vdom.DynAttr(0), "Go"),
		vdom.Dyn(1),
	),
)

var itemTemplate = vdom.NewTemplate("diff-test:item",
	vdom.El("li", vdom.DynAttr(0), vdom.DynText(0)),
)

func staticChild(s *vdom.Scope) (*vdom.VNode, error) {
	return vdom.NewVNode("", itemTemplate,
		[]vdom.DynamicNode{vdom.Text(vdom.PropsOf[string](s))},
		[][]vdom.Attribute{nil},
	), nil
}

func buildPage() *vdom.VNode {
	items := vdom.Range([]string{"a", "b", "c"}, func(item string, _ int) *vdom.VNode {
		return vdom.NewVNode(item, itemTemplate,
			[]vdom.DynamicNode{vdom.Text(item)},
			[][]vdom.Attribute{{vdom.Data("item", item)}},
		)
	})
	return vdom.NewVNode("", pageTemplate,
		[]vdom.DynamicNode{items, vdom.C("Child", staticChild, "child")},
		[][]vdom.Attribute{{vdom.OnClick(func(*vdom.Event) {}), vdom.Disabled(false)}},
	)
}

func TestDiffIdenticalCloneIsEmpty(t *testing.T) {
	h := newHarness(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return buildPage(), nil
	})
	before := h.html()

	h.dom.MarkDirty(h.dom.Root().ID())
	got := h.tick()

	if got.Len() != 0 {
		t.Errorf("re-render with identical clone produced %d edits: %s", got.Len(), edits(got))
	}
	if after := h.html(); after != before {
		t.Errorf("html changed: %q -> %q", before, after)
	}
}

func bigTemplate(statics int) *vdom.Template {
	children := make([]any, 0, statics+2)
	for i := 0; i < statics; i++ {
		children = append(children, vdom.El("span", vdom.StaticAttr("class", "s"), fmt.Sprintf("static %d", i)))
	}
	children = append(children, vdom.DynAttr(0), vdom.DynText(0))
	return vdom.NewTemplate(fmt.Sprintf("diff-test:big-%d", statics), vdom.El("section", children...))
}

func TestFastPathIndependentOfStaticSize(t *testing.T) {
	for _, statics := range []int{1, 50, 250} {
		t.Run(fmt.Sprint(statics), func(t *testing.T) {
			tmpl := bigTemplate(statics)
			var n *vdom.State[int]
			h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
				n = vdom.UseState(s, func() int { return 0 })
				return vdom.NewVNode("", tmpl,
					[]vdom.DynamicNode{vdom.Text(fmt.Sprint(n.Get()))},
					[][]vdom.Attribute{{vdom.Attr("data-n", 0)}},
				), nil
			})

			n.Set(1)
			got := h.tick()
			if got.Len() != 1 {
				t.Errorf("edits = %d (%s), want 1", got.Len(), edits(got))
			}
		})
	}
}

var attrTemplate = vdom.NewTemplate("diff-test:attrs",
	vdom.El("input", vdom.DynAttr(0)),
)

func TestAttributeDiff(t *testing.T) {
	type attrs struct {
		class    string
		title    any
		volatile string
		listen   bool
	}
	var st *vdom.State[attrs]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		st = vdom.UseState(s, func() attrs { return attrs{class: "a", title: "t", volatile: "v", listen: true} })
		a := st.Get()
		group := []vdom.Attribute{
			vdom.Class(a.class),
			vdom.Attr("title", a.title),
			vdom.Value(a.volatile),
		}
		if a.listen {
			group = append(group, vdom.OnInput(func(*vdom.Event) {}))
		}
		return vdom.NewVNode("", attrTemplate, nil, [][]vdom.Attribute{group}), nil
	})
	id := h.find("input").ID

	st.Set(attrs{class: "b", title: nil, volatile: "v", listen: false})
	got := h.tick()

	want := []vdom.Mutation{
		{Op: vdom.OpRemoveAttribute, ID: id, Name: "title"},
		{Op: vdom.OpRemoveEventListener, ID: id, Name: "input"},
		{Op: vdom.OpSetAttribute, ID: id, Name: "class", Value: "b"},
		{Op: vdom.OpSetAttribute, ID: id, Name: "value", Value: "v"},
	}
	if diff := cmp.Diff(want, got.Edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
	if html := h.html(); html != `<input class="b" value="v">` {
		t.Errorf("html = %q", html)
	}
}

var (
	swapA = vdom.NewTemplate("diff-test:swap-a", vdom.El("a", "A"))
	swapB = vdom.NewTemplate("diff-test:swap-b", vdom.El("b", "B"), vdom.El("i", "I"))
)

func TestDifferentTemplateReplaces(t *testing.T) {
	var flag *vdom.State[bool]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		flag = vdom.UseState(s, func() bool { return false })
		if flag.Get() {
			return vdom.Static(swapB), nil
		}
		return vdom.Static(swapA), nil
	})
	oldID := h.find("a").ID

	flag.Set(true)
	got := h.tick()

	if n := got.Count(vdom.OpReplaceWith); n != 1 {
		t.Errorf("ReplaceWith count = %d, want 1 (%s)", n, edits(got))
	}
	last := got.Edits[len(got.Edits)-1]
	if last.Op != vdom.OpReplaceWith || last.ID != oldID || last.M != 2 {
		t.Errorf("last edit = %v, want ReplaceWith(%v, 2)", last, oldID)
	}
	if html := h.html(); html != "<b>B</b><i>I</i>" {
		t.Errorf("html = %q", html)
	}

	flag.Set(false)
	h.tick()
	if html := h.html(); html != "<a>A</a>" {
		t.Errorf("html after swap back = %q", html)
	}
}

var slotTemplate = vdom.NewTemplate("diff-test:slot",
	vdom.El("div", vdom.Dyn(0)),
)

func TestDynamicKindChanges(t *testing.T) {
	var kind *vdom.State[int]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		kind = vdom.UseState(s, func() int { return 0 })
		var node vdom.DynamicNode
		switch kind.Get() {
		case 0:
			node = vdom.Text("text")
		case 1:
			node = vdom.Fragment{vdom.Static(swapA), vdom.Static(swapA)}
		case 2:
			node = vdom.Placeholder{}
		case 3:
			node = vdom.C("Child", staticChild, "x")
		}
		return vdom.NewVNode("", slotTemplate, []vdom.DynamicNode{node}, nil), nil
	})

	want := []string{
		"<div>text</div>",
		"<div><a>A</a><a>A</a></div>",
		"<div><!----></div>",
		"<div><li>x</li></div>",
		"<div>text</div>",
	}
	if html := h.html(); html != want[0] {
		t.Fatalf("initial html = %q, want %q", html, want[0])
	}
	elements := h.dom.ElementCount()
	for i, k := range []int{1, 2, 3, 0} {
		kind.Set(k)
		h.tick()
		if html := h.html(); html != want[i+1] {
			t.Errorf("kind %d: html = %q, want %q", k, html, want[i+1])
		}
	}
	if got := h.dom.ElementCount(); got != elements {
		t.Errorf("ElementCount() = %d after round trip, want %d", got, elements)
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
}

func TestUnkeyedListGrowAndShrink(t *testing.T) {
	var n *vdom.State[int]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		n = vdom.UseState(s, func() int { return 2 })
		items := make(vdom.Fragment, 0, n.Get())
		for i := 0; i < n.Get(); i++ {
			items = append(items, vdom.NewVNode("", itemTemplate,
				[]vdom.DynamicNode{vdom.Text(fmt.Sprint(i))}, [][]vdom.Attribute{nil}))
		}
		return vdom.NewVNode("", slotTemplate, []vdom.DynamicNode{items}, nil), nil
	})

	n.Set(4)
	got := h.tick()
	if c := got.Count(vdom.OpInsertAfter); c != 1 {
		t.Errorf("InsertAfter count = %d, want 1 (%s)", c, edits(got))
	}
	if html := h.html(); html != "<div><li>0</li><li>1</li><li>2</li><li>3</li></div>" {
		t.Errorf("html = %q", html)
	}

	n.Set(1)
	got = h.tick()
	if c := got.Count(vdom.OpRemove); c != 3 {
		t.Errorf("Remove count = %d, want 3 (%s)", c, edits(got))
	}
	if html := h.html(); html != "<div><li>0</li></div>" {
		t.Errorf("html = %q", html)
	}

	n.Set(0)
	h.tick()
	if html := h.html(); html != "<div><!----></div>" {
		t.Errorf("html = %q", html)
	}
	n.Set(2)
	h.tick()
	if html := h.html(); html != "<div><li>0</li><li>1</li></div>" {
		t.Errorf("html = %q", html)
	}
}

func TestComponentClosureSeesLatestCapture(t *testing.T) {
	var label *vdom.State[string]
	var count *vdom.State[int]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		label = vdom.UseState(s, func() string { return "old" })
		text := label.Get()
		child := func(s *vdom.Scope) (*vdom.VNode, error) {
			count = vdom.UseState(s, func() int { return 0 })
			return vdom.NewVNode("", countTemplate,
				[]vdom.DynamicNode{vdom.Text(fmt.Sprintf("%s-%d", text, count.Get()))}, nil), nil
		}
		return vdom.NewVNode("", boxTemplate, []vdom.DynamicNode{vdom.C("Child", child, nil)}, nil), nil
	})
	if html := h.html(); html != "<div><span>old-0</span></div>" {
		t.Fatalf("initial html = %q", html)
	}

	// Unchanged props keep the child from re-running with its parent.
	label.Set("new")
	h.flush()
	if html := h.html(); html != "<div><span>old-0</span></div>" {
		t.Errorf("html after parent update = %q, want %q", html, "<div><span>old-0</span></div>")
	}

	count.Set(1)
	h.flush()
	if html := h.html(); html != "<div><span>new-1</span></div>" {
		t.Errorf("html after child update = %q, want %q", html, "<div><span>new-1</span></div>")
	}
}
