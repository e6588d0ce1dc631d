package render

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// childIDs returns the ids of n's children in order.
func childIDs(n *Node) []vdom.ElementID {
	ids := make([]vdom.ElementID, len(n.Children))
	for i, c := range n.Children {
		ids[i] = c.ID
	}
	return ids
}

func mustApply(t *testing.T, doc *Document, edits ...vdom.Mutation) {
	t.Helper()
	if err := doc.Apply(edits); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func TestDocumentCreateAndAppend(t *testing.T) {
	doc := NewDocument()
	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 1, Tag: "ul"},
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 2, Tag: "li"},
		vdom.Mutation{Op: vdom.OpCreateText, ID: 3, Text: "one"},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 2, M: 1},
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 4, Tag: "li"},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 1, M: 2},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 0, M: 1},
	)

	if got := doc.StackDepth(); got != 0 {
		t.Errorf("StackDepth() = %d, want 0", got)
	}
	if got := doc.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
	ul, ok := doc.Node(1)
	if !ok {
		t.Fatal("Node(1) not found")
	}
	if diff := cmp.Diff([]vdom.ElementID{2, 4}, childIDs(ul)); diff != "" {
		t.Errorf("ul children mismatch (-want +got):\n%s", diff)
	}
	if got := ul.TextContent(); got != "one" {
		t.Errorf("TextContent() = %q, want %q", got, "one")
	}
}

func TestDocumentInsertAndMove(t *testing.T) {
	doc := NewDocument()
	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 1, Tag: "a"},
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 2, Tag: "b"},
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 3, Tag: "c"},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 0, M: 3},
	)

	// Move c to the front.
	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpPushRoot, ID: 3},
		vdom.Mutation{Op: vdom.OpInsertBefore, ID: 1, M: 1},
	)
	if diff := cmp.Diff([]vdom.ElementID{3, 1, 2}, childIDs(doc.Root())); diff != "" {
		t.Errorf("after move (-want +got):\n%s", diff)
	}

	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateText, ID: 4, Text: "x"},
		vdom.Mutation{Op: vdom.OpInsertAfter, ID: 1, M: 1},
	)
	if diff := cmp.Diff([]vdom.ElementID{3, 1, 4, 2}, childIDs(doc.Root())); diff != "" {
		t.Errorf("after insert (-want +got):\n%s", diff)
	}
}

func TestDocumentReplaceAndRemove(t *testing.T) {
	doc := NewDocument()
	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 1, Tag: "div"},
		vdom.Mutation{Op: vdom.OpCreateText, ID: 2, Text: "inner"},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 1, M: 1},
		vdom.Mutation{Op: vdom.OpCreatePlaceholder, ID: 3},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 0, M: 2},
	)

	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateText, ID: 4, Text: "a"},
		vdom.Mutation{Op: vdom.OpCreateText, ID: 5, Text: "b"},
		vdom.Mutation{Op: vdom.OpReplaceWith, ID: 3, M: 2},
	)
	if diff := cmp.Diff([]vdom.ElementID{1, 4, 5}, childIDs(doc.Root())); diff != "" {
		t.Errorf("after replace (-want +got):\n%s", diff)
	}
	if _, ok := doc.Node(3); ok {
		t.Error("replaced placeholder should be forgotten")
	}

	mustApply(t, doc, vdom.Mutation{Op: vdom.OpRemove, ID: 1})
	if _, ok := doc.Node(2); ok {
		t.Error("descendants of removed node should be forgotten")
	}
	if got := doc.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestDocumentAttributesAndListeners(t *testing.T) {
	doc := NewDocument()
	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpCreateElement, ID: 1, Tag: "input"},
		vdom.Mutation{Op: vdom.OpSetAttribute, ID: 1, Name: "value", Value: "hi"},
		vdom.Mutation{Op: vdom.OpSetAttribute, ID: 1, Name: "href", NS: "xlink", Value: "#a"},
		vdom.Mutation{Op: vdom.OpNewEventListener, ID: 1, Name: "input"},
		vdom.Mutation{Op: vdom.OpAppendChildren, ID: 0, M: 1},
	)
	n, _ := doc.Node(1)
	if diff := cmp.Diff([]string{"value", "xlink:href"}, n.AttrNames()); diff != "" {
		t.Errorf("attrs (-want +got):\n%s", diff)
	}

	mustApply(t, doc,
		vdom.Mutation{Op: vdom.OpRemoveAttribute, ID: 1, Name: "href", NS: "xlink"},
		vdom.Mutation{Op: vdom.OpRemoveEventListener, ID: 1, Name: "input"},
	)
	if diff := cmp.Diff([]string{"value"}, n.AttrNames()); diff != "" {
		t.Errorf("attrs after remove (-want +got):\n%s", diff)
	}
	if got := len(n.ListenerNames()); got != 0 {
		t.Errorf("listeners = %d, want 0", got)
	}
}

func TestDocumentErrors(t *testing.T) {
	doc := NewDocument()

	err := doc.Apply([]vdom.Mutation{{Op: vdom.OpSetText, ID: 42, Text: "x"}})
	var unknown *UnknownElementError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownElementError", err)
	}
	if unknown.ID != 42 {
		t.Errorf("ID = %d, want 42", unknown.ID)
	}

	err = doc.Apply([]vdom.Mutation{{Op: vdom.OpAppendChildren, ID: 0, M: 1}})
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("error = %v, want ErrStackUnderflow", err)
	}
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) || applyErr.Index != 0 {
		t.Errorf("error = %v, want ApplyError at index 0", err)
	}
}
