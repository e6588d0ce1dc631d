package vdom_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/vango-dev/vcore/pkg/vdom"
)

var listTemplate = vdom.NewTemplate("keyed-test:list", vdom.El("ul", vdom.Dyn(0)))

func keyedList(keys []string) *vdom.VNode {
	items := vdom.Range(keys, func(k string, _ int) *vdom.VNode {
		return vdom.NewVNode(k, itemTemplate,
			[]vdom.DynamicNode{vdom.Text(k)},
			[][]vdom.Attribute{nil},
		)
	})
	return vdom.NewVNode("", listTemplate, []vdom.DynamicNode{items}, nil)
}

func listHTML(keys []string) string {
	if len(keys) == 0 {
		return "<ul><!----></ul>"
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, k := range keys {
		fmt.Fprintf(&b, "<li>%s</li>", k)
	}
	b.WriteString("</ul>")
	return b.String()
}

// newListHarness mounts a keyed list and returns a function that re-renders
// it with new keys and returns the edits.
func newListHarness(t *testing.T, initial []string) (*harness, func(keys []string) *vdom.Mutations) {
	t.Helper()
	var keys *vdom.State[[]string]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		keys = vdom.UseState(s, func() []string { return initial })
		return keyedList(keys.Get()), nil
	})
	return h, func(next []string) *vdom.Mutations {
		keys.Set(next)
		return h.tick()
	}
}

func TestKeyedRotateIsOneMove(t *testing.T) {
	h, set := newListHarness(t, []string{"1", "2", "3"})
	liC := h.find("ul").Children[2].ID

	got := set([]string{"3", "1", "2"})

	if m := got.Moves(); m != 1 {
		t.Errorf("Moves() = %d, want 1 (%s)", m, edits(got))
	}
	if got.Edits[0].Op != vdom.OpPushRoot || got.Edits[0].ID != liC {
		t.Errorf("first edit = %v, want PushRoot(%v)", got.Edits[0], liC)
	}
	for _, op := range []vdom.MutationOp{vdom.OpCreateElement, vdom.OpCreateText, vdom.OpRemove} {
		if c := got.Count(op); c != 0 {
			t.Errorf("%s count = %d, want 0", op, c)
		}
	}
	if html := h.html(); html != listHTML([]string{"3", "1", "2"}) {
		t.Errorf("html = %q", html)
	}
}

func TestKeyedMinimalMoves(t *testing.T) {
	tests := []struct {
		name  string
		from  []string
		to    []string
		moves int
	}{
		{"no change", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 0},
		{"append", []string{"a", "b"}, []string{"a", "b", "c", "d"}, 0},
		{"prepend", []string{"c", "d"}, []string{"a", "b", "c", "d"}, 0},
		{"insert middle", []string{"a", "d"}, []string{"a", "b", "c", "d"}, 0},
		{"remove middle", []string{"a", "b", "c", "d"}, []string{"a", "d"}, 0},
		{"swap ends", []string{"a", "b", "c", "d", "e"}, []string{"e", "b", "c", "d", "a"}, 2},
		{"reverse", []string{"a", "b", "c", "d", "e"}, []string{"e", "d", "c", "b", "a"}, 4},
		{"move last to middle", []string{"a", "b", "c", "d", "e"}, []string{"a", "b", "e", "c", "d"}, 1},
		{"shift by insert", []string{"a", "b", "c"}, []string{"x", "a", "b", "c", "y"}, 0},
		{"replace all", []string{"a", "b"}, []string{"c", "d", "e"}, 0},
		{"move and remove", []string{"a", "b", "c", "d"}, []string{"d", "a", "c"}, 1},
		{"to empty", []string{"a", "b"}, nil, 0},
		{"from empty", nil, []string{"a", "b"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, set := newListHarness(t, tt.from)
			got := set(tt.to)
			if m := got.Moves(); m != tt.moves {
				t.Errorf("Moves() = %d, want %d (%s)", m, tt.moves, edits(got))
			}
			if html := h.html(); html != listHTML(tt.to) {
				t.Errorf("html = %q, want %q", html, listHTML(tt.to))
			}
		})
	}
}

func TestKeyedReusesElements(t *testing.T) {
	h, set := newListHarness(t, []string{"a", "b", "c"})
	ids := map[string]vdom.ElementID{}
	for _, li := range h.find("ul").Children {
		ids[li.TextContent()] = li.ID
	}

	set([]string{"c", "b", "a", "d"})
	for _, li := range h.find("ul").Children {
		if want, ok := ids[li.TextContent()]; ok && li.ID != want {
			t.Errorf("<li>%s</li> id = %v, want reused %v", li.TextContent(), li.ID, want)
		}
	}
}

func TestKeyedDuplicateKeysDoNotPanic(t *testing.T) {
	h, set := newListHarness(t, []string{"a", "b", "a", "c"})
	if html := h.html(); html != listHTML([]string{"a", "b", "a", "c"}) {
		t.Fatalf("initial html = %q", html)
	}

	for _, next := range [][]string{
		{"c", "a", "a", "b"},
		{"b", "b", "b"},
		{"a", "c"},
		{"a", "a", "c", "c"},
	} {
		set(next)
		if html := h.html(); html != listHTML(next) {
			t.Errorf("after %v: html = %q, want %q", next, html, listHTML(next))
		}
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
}

func TestKeyedRandomPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	h, set := newListHarness(t, pool[:5])

	for i := 0; i < 200; i++ {
		n := rng.Intn(len(pool) + 1)
		next := append([]string(nil), pool...)
		rng.Shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })
		next = next[:n]

		got := set(next)
		if html := h.html(); html != listHTML(next) {
			t.Fatalf("step %d %v: html = %q, want %q\nedits: %s", i, next, html, listHTML(next), edits(got))
		}
	}
	if got := h.doc.Len(); got != h.dom.ElementCount() {
		t.Errorf("document has %d nodes, engine %d ids", got, h.dom.ElementCount())
	}
}

func TestMixedKeysFallBackToUnkeyed(t *testing.T) {
	var flip *vdom.State[bool]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		flip = vdom.UseState(s, func() bool { return false })
		a := vdom.NewVNode("a", itemTemplate, []vdom.DynamicNode{vdom.Text("a")}, [][]vdom.Attribute{nil})
		b := vdom.NewVNode("", itemTemplate, []vdom.DynamicNode{vdom.Text("b")}, [][]vdom.Attribute{nil})
		items := vdom.Fragment{a, b}
		if flip.Get() {
			items = vdom.Fragment{b, a}
		}
		return vdom.NewVNode("", listTemplate, []vdom.DynamicNode{items}, nil), nil
	})

	flip.Set(true)
	got := h.tick()
	if m := got.Moves(); m != 0 {
		t.Errorf("Moves() = %d, want 0 for unkeyed fallback", m)
	}
	if html := h.html(); html != "<ul><li>b</li><li>a</li></ul>" {
		t.Errorf("html = %q", html)
	}
}

func TestKeyedDuplicateKeysLogged(t *testing.T) {
	tests := []struct {
		name      string
		old, next []string
	}{
		{"prefix", []string{"a", "b"}, []string{"a", "a", "b"}},
		{"suffix insert", []string{"a", "b"}, []string{"a", "b", "b"}},
		{"middle", []string{"a", "b", "c"}, []string{"c", "a", "c", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			var keys *vdom.State[[]string]
			h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
				keys = vdom.UseState(s, func() []string { return tt.old })
				return keyedList(keys.Get()), nil
			}, vdom.WithLogger(logger))

			keys.Set(tt.next)
			h.tick()

			if html := h.html(); html != listHTML(tt.next) {
				t.Errorf("html = %q, want %q", html, listHTML(tt.next))
			}
			if got := strings.Count(buf.String(), "E301"); got != 1 {
				t.Errorf("E301 logged %d times, want 1\nlog: %s", got, buf.String())
			}
		})
	}
}

var pairItemTemplate = vdom.NewTemplate("keyed-test:pair",
	vdom.El("dt", vdom.DynText(0)),
	vdom.El("dd", vdom.DynText(1)),
)

var defListTemplate = vdom.NewTemplate("keyed-test:dl", vdom.El("dl", vdom.Dyn(0)))

func TestKeyedMovesCountRoots(t *testing.T) {
	var keys *vdom.State[[]string]
	h := newHarness(t, func(s *vdom.Scope) (*vdom.VNode, error) {
		keys = vdom.UseState(s, func() []string { return []string{"1", "2", "3"} })
		items := vdom.Range(keys.Get(), func(k string, _ int) *vdom.VNode {
			return vdom.NewVNode(k, pairItemTemplate, []vdom.DynamicNode{vdom.Text(k), vdom.Text(k)}, nil)
		})
		return vdom.NewVNode("", defListTemplate, []vdom.DynamicNode{items}, nil), nil
	})

	keys.Set([]string{"3", "1", "2"})
	got := h.tick()

	// One item moved; it has two roots.
	if m := got.Moves(); m != 2 {
		t.Errorf("Moves() = %d, want 2 (%s)", m, edits(got))
	}
	want := "<dl><dt>3</dt><dd>3</dd><dt>1</dt><dd>1</dd><dt>2</dt><dd>2</dd></dl>"
	if html := h.html(); html != want {
		t.Errorf("html = %q, want %q", html, want)
	}
}
