package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables indented output. Should only be used in development.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string

	// IncludeIDs adds a data-vid attribute with the ElementID to every
	// element so a client can adopt server-rendered markup.
	IncludeIDs bool
}

// Renderer serializes a Document to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders the document's children to an HTML string.
func (r *Renderer) RenderToString(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams the document's children to w.
func (r *Renderer) RenderToWriter(w io.Writer, doc *Document) error {
	return r.RenderNode(w, doc.Root())
}

// RenderNode streams one node and its subtree. The root container renders
// only its children.
func (r *Renderer) RenderNode(w io.Writer, n *Node) error {
	return r.renderNode(w, n, 0)
}

func (r *Renderer) renderNode(w io.Writer, n *Node, depth int) error {
	switch n.Kind {
	case KindRoot:
		for _, c := range n.Children {
			if err := r.renderNode(w, c, depth); err != nil {
				return err
			}
		}
		return nil
	case KindText:
		_, err := io.WriteString(w, escapeHTML(n.Text))
		return err
	case KindPlaceholder:
		if r.config.IncludeIDs {
			_, err := fmt.Fprintf(w, "<!--vid:%d-->", uint64(n.ID))
			return err
		}
		_, err := io.WriteString(w, "<!---->")
		return err
	case KindElement:
		return r.renderElement(w, n, depth)
	default:
		return fmt.Errorf("render: unknown node kind %s", n.Kind)
	}
}

func (r *Renderer) renderElement(w io.Writer, n *Node, depth int) error {
	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}
	if _, err := fmt.Fprintf(w, "<%s", n.Tag); err != nil {
		return err
	}
	if r.config.IncludeIDs {
		if _, err := fmt.Fprintf(w, ` data-vid="%d"`, uint64(n.ID)); err != nil {
			return err
		}
	}
	if err := r.renderAttributes(w, n); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if isVoidElement(n.Tag) {
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	block := r.config.Pretty && hasElementChildren(n)
	if block {
		io.WriteString(w, "\n")
	}
	for _, c := range n.Children {
		if err := r.renderNode(w, c, depth+1); err != nil {
			return err
		}
	}
	if block {
		r.writeIndent(w, depth)
	}
	if _, err := fmt.Fprintf(w, "</%s>", n.Tag); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderAttributes writes attributes in sorted order, then a data-on-*
// marker per listener for client-side binding.
func (r *Renderer) renderAttributes(w io.Writer, n *Node) error {
	for _, name := range n.AttrNames() {
		value := n.Attrs[name]
		if isBooleanAttr(name) {
			if b, ok := value.(bool); ok {
				if b {
					if _, err := fmt.Fprintf(w, " %s", name); err != nil {
						return err
					}
				}
				continue
			}
		}
		s := attrToString(value)
		if _, err := fmt.Fprintf(w, ` %s="%s"`, name, escapeAttr(s)); err != nil {
			return err
		}
	}
	for _, event := range n.ListenerNames() {
		if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, event); err != nil {
			return err
		}
	}
	return nil
}

func hasElementChildren(n *Node) bool {
	for _, c := range n.Children {
		if c.Kind == KindElement {
			return true
		}
	}
	return false
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
