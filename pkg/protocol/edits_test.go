package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vcore/pkg/vdom"
)

func everyOp() []vdom.Mutation {
	return []vdom.Mutation{
		{Op: vdom.OpCreateElement, ID: 1, Tag: "svg", NS: "http://www.w3.org/2000/svg"},
		{Op: vdom.OpCreateText, ID: 2, Text: "héllo"},
		{Op: vdom.OpCreatePlaceholder, ID: 3},
		{Op: vdom.OpAppendChildren, ID: 1, M: 2},
		{Op: vdom.OpSetAttribute, ID: 1, Name: "width", Value: int64(20)},
		{Op: vdom.OpSetAttribute, ID: 1, Name: "href", NS: "xlink", Value: "#a"},
		{Op: vdom.OpSetAttribute, ID: 1, Name: "hidden", Value: true},
		{Op: vdom.OpRemoveAttribute, ID: 1, Name: "title"},
		{Op: vdom.OpSetText, ID: 2, Text: ""},
		{Op: vdom.OpPushRoot, ID: 3},
		{Op: vdom.OpInsertAfter, ID: 2, M: 1},
		{Op: vdom.OpInsertBefore, ID: 2, M: 1},
		{Op: vdom.OpReplaceWith, ID: 1 << 33, M: 3},
		{Op: vdom.OpRemove, ID: 4},
		{Op: vdom.OpNewEventListener, ID: 1, Name: "click"},
		{Op: vdom.OpRemoveEventListener, ID: 1, Name: "click"},
		{Op: vdom.OpAppendChildren, ID: 0, M: 1},
	}
}

func TestEditsRoundTrip(t *testing.T) {
	in := &EditBatch{Seq: 9, Edits: everyOp()}
	out, err := DecodeEdits(EncodeEdits(in))
	if err != nil {
		t.Fatalf("DecodeEdits() error = %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestEditsFromEngine(t *testing.T) {
	tmpl := vdom.NewTemplate("protocol-test:form",
		vdom.El("form", vdom.DynAttr(0),
			vdom.El("input", vdom.StaticAttr("type", "text"), vdom.DynAttr(1)),
			vdom.DynText(0),
		),
	)
	dom := vdom.New(func(s *vdom.Scope) (*vdom.VNode, error) {
		return vdom.NewVNode("", tmpl, []vdom.DynamicNode{vdom.Text("ready")}, [][]vdom.Attribute{
			{vdom.OnSubmit(func(*vdom.Event) {})},
			{vdom.Value("x"), vdom.Disabled(false)},
		}), nil
	}, nil)
	defer dom.Close()
	var m vdom.Mutations
	if err := dom.Rebuild(&m); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	in := &EditBatch{Seq: 1, Edits: m.Take()}
	out, err := DecodeEdits(EncodeEdits(in))
	if err != nil {
		t.Fatalf("DecodeEdits() error = %v", err)
	}
	if len(out.Edits) != len(in.Edits) {
		t.Fatalf("decoded %d edits, want %d", len(out.Edits), len(in.Edits))
	}
	for i := range in.Edits {
		if got, want := out.Edits[i].String(), in.Edits[i].String(); got != want {
			t.Errorf("edit %d = %s, want %s", i, got, want)
		}
	}
}

func TestSetTextIsCompact(t *testing.T) {
	b := &EditBatch{Seq: 1, Edits: []vdom.Mutation{{Op: vdom.OpSetText, ID: 3, Text: "hi"}}}
	// seq, count, op, id, len, "hi"
	if got := len(EncodeEdits(b)); got != 7 {
		t.Errorf("encoded size = %d, want 7", got)
	}
}

func TestDecodeEditsErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown op", []byte{0x01, 0x01, 0x7F, 0x01}, ErrUnknownOp},
		{"trailing bytes", append(EncodeEdits(&EditBatch{Seq: 1}), 0x00), ErrTrailingBytes},
		{"count too large", []byte{0x01, 0xFF, 0xFF, 0x7F}, ErrCollectionTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEdits(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeEdits() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkEncodeEdits(b *testing.B) {
	batch := &EditBatch{Seq: 1, Edits: everyOp()}
	e := NewEncoder()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Reset()
		EncodeEditsTo(e, batch)
	}
}

func BenchmarkDecodeEdits(b *testing.B) {
	data := EncodeEdits(&EditBatch{Seq: 1, Edits: everyOp()})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeEdits(data); err != nil {
			b.Fatal(err)
		}
	}
}
