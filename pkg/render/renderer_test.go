package render

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vcore/pkg/vdom"
)

var cardTemplate = vdom.NewTemplate("render-test:card",
	vdom.El("div", vdom.StaticAttr("class", "card"), vdom.DynAttr(0),
		vdom.El("h1", vdom.DynText(0)),
		vdom.El("input", vdom.DynAttr(1)),
		vdom.Dyn(1),
	),
)

func card(title string) *vdom.VNode {
	return vdom.NewVNode("", cardTemplate,
		[]vdom.DynamicNode{vdom.Text(title), nil},
		[][]vdom.Attribute{
			{vdom.OnClick(func(*vdom.Event) {})},
			{vdom.Disabled(true), vdom.Attr("name", "q")},
		},
	)
}

func buildDoc(t *testing.T, render vdom.RenderFunc) *Document {
	t.Helper()
	doc, err := Build(context.Background(), render, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return doc
}

func TestRenderElement(t *testing.T) {
	doc := buildDoc(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return card("Title"), nil
	})

	html, err := NewRenderer(RendererConfig{}).RenderToString(doc)
	if err != nil {
		t.Fatalf("RenderToString() error = %v", err)
	}
	want := `<div class="card" data-on-click="true"><h1>Title</h1><input disabled name="q"><!----></div>`
	if html != want {
		t.Errorf("html = %q, want %q", html, want)
	}
}

func TestRenderTextEscaping(t *testing.T) {
	doc := buildDoc(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return card("<script>alert('xss')</script>"), nil
	})

	html, err := NewRenderer(RendererConfig{}).RenderToString(doc)
	if err != nil {
		t.Fatalf("RenderToString() error = %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("HTML should be escaped, got %q", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("should contain escaped script tag, got %q", html)
	}
}

func TestRenderIncludeIDs(t *testing.T) {
	doc := buildDoc(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return card("x"), nil
	})
	div := doc.Root().Children[0]

	html, err := NewRenderer(RendererConfig{IncludeIDs: true}).RenderToString(doc)
	if err != nil {
		t.Fatalf("RenderToString() error = %v", err)
	}
	if !strings.HasPrefix(html, `<div data-vid="`) {
		t.Errorf("html = %q, want data-vid on first element", html)
	}
	if !strings.Contains(html, "<!--vid:") {
		t.Errorf("html = %q, want placeholder comment with id", html)
	}
	if div.ID == 0 {
		t.Error("element id should not be the root container id")
	}
}

func TestRenderPretty(t *testing.T) {
	doc := buildDoc(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return card("T"), nil
	})

	html, err := NewRenderer(RendererConfig{Pretty: true}).RenderToString(doc)
	if err != nil {
		t.Fatalf("RenderToString() error = %v", err)
	}
	if !strings.Contains(html, "\n  <h1>T</h1>\n") {
		t.Errorf("pretty html = %q, want indented h1", html)
	}
}

func TestAttrToString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{true, "true"},
		{42, "42"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{uint8(3), "3"},
	}
	for _, tt := range tests {
		if got := attrToString(tt.in); got != tt.want {
			t.Errorf("attrToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderPage(t *testing.T) {
	doc := buildDoc(t, func(*vdom.Scope) (*vdom.VNode, error) {
		return card("Hello"), nil
	})

	var buf bytes.Buffer
	err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{
		Body:        doc,
		Title:       "A & B",
		StyleSheets: []string{"/app.css"},
		SessionID:   "s1",
		SocketPath:  "/ws",
	})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>A &amp; B</title>",
		`<link rel="stylesheet" href="/app.css">`,
		`<main id="vcore-root"><div class="card"`,
		`window.__VCORE_SESSION__="s1"`,
		`window.__VCORE_SOCKET__="/ws"`,
		`<script src="/_vcore/client.js" defer></script>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q:\n%s", want, html)
		}
	}
}

func TestStreamingRendererFlushes(t *testing.T) {
	var buf bytes.Buffer
	w := &FlushableWriter{Writer: &buf}

	if err := NewStreamingRenderer(w, RendererConfig{}).RenderPage(PageData{Title: "x"}); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if w.FlushCount != 2 {
		t.Errorf("FlushCount = %d, want 2", w.FlushCount)
	}
	if !strings.HasSuffix(buf.String(), "</html>\n") {
		t.Errorf("output should end with </html>, got %q", buf.String())
	}
}

var greetingTemplate = vdom.NewTemplate("render-test:greeting",
	vdom.El("p", vdom.DynText(0)),
)

func loadingName(s *vdom.Scope) (*vdom.VNode, error) {
	name := vdom.UseFuture(s, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Millisecond):
			return "Ada", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	v, err := name.Suspend()
	if err != nil {
		return nil, err
	}
	return vdom.NewVNode("", greetingTemplate, []vdom.DynamicNode{vdom.Text("Hello " + v)}, nil), nil
}

var wrapperTemplate = vdom.NewTemplate("render-test:wrapper", vdom.El("section", vdom.Dyn(0)))
var loadingTemplate = vdom.NewTemplate("render-test:loading", vdom.El("em", "loading"))

func TestRenderStaticResolvesSuspense(t *testing.T) {
	app := func(s *vdom.Scope) (*vdom.VNode, error) {
		body := vdom.NewVNode("", wrapperTemplate, []vdom.DynamicNode{
			vdom.C("Name", loadingName, nil),
		}, nil)
		return vdom.NewVNode("", wrapperTemplate, []vdom.DynamicNode{
			vdom.Suspense(vdom.SuspenseProps{Children: body, Fallback: vdom.Static(loadingTemplate)}),
		}, nil), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	html, err := RenderStatic(ctx, app, nil, RendererConfig{})
	if err != nil {
		t.Fatalf("RenderStatic() error = %v", err)
	}
	want := "<section><section><p>Hello Ada</p></section></section>"
	if html != want {
		t.Errorf("html = %q, want %q", html, want)
	}
}
