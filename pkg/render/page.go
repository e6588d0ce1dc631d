package render

import (
	"fmt"
	"io"
	"net/http"
)

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Body is the document rendered inside <body>. May be nil.
	Body *Document

	// Title is the page title.
	Title string

	// Lang is the language attribute of the html element.
	// Defaults to "en".
	Lang string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// SessionID identifies the liveview session the page belongs to.
	SessionID string

	// SocketPath is the WebSocket endpoint the client connects to.
	SocketPath string

	// ClientScript is the path to the client script. Defaults to
	// "/_vcore/client.js".
	ClientScript string
}

// RenderPage renders a complete HTML document to w.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	if err := r.renderHead(w, page); err != nil {
		return err
	}
	if err := r.renderBody(w, page); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</html>\n")
	return err
}

func (r *Renderer) renderHead(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  <meta charset=\"utf-8\">\n"+
		"  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"); err != nil {
		return err
	}
	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}
	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, "  <link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</head>\n")
	return err
}

func (r *Renderer) renderBody(w io.Writer, page PageData) error {
	if _, err := io.WriteString(w, "<body>\n<main id=\"vcore-root\">"); err != nil {
		return err
	}
	if page.Body != nil {
		if err := r.RenderToWriter(w, page.Body); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</main>\n"); err != nil {
		return err
	}
	if err := r.renderClientScript(w, page); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n")
	return err
}

// renderClientScript injects the session bootstrap and the client script.
func (r *Renderer) renderClientScript(w io.Writer, page PageData) error {
	if page.SessionID != "" {
		if _, err := fmt.Fprintf(w, "  <script>window.__VCORE_SESSION__=\"%s\";</script>\n",
			escapeAttr(page.SessionID)); err != nil {
			return err
		}
	}
	if page.SocketPath != "" {
		if _, err := fmt.Fprintf(w, "  <script>window.__VCORE_SOCKET__=\"%s\";</script>\n",
			escapeAttr(page.SocketPath)); err != nil {
			return err
		}
	}
	src := page.ClientScript
	if src == "" {
		src = "/_vcore/client.js"
	}
	_, err := fmt.Fprintf(w, "  <script src=\"%s\" defer></script>\n", escapeAttr(src))
	return err
}

// StreamingRenderer flushes the page head before rendering the body so
// the browser can start fetching stylesheets early.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       io.Writer
}

// NewStreamingRenderer creates a streaming renderer that writes to w. If w
// implements http.Flusher, output is flushed after the head and the body.
func NewStreamingRenderer(w io.Writer, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{Renderer: NewRenderer(config), flusher: flusher, w: w}
}

// RenderPage renders a complete HTML document with incremental flushing.
func (s *StreamingRenderer) RenderPage(page PageData) error {
	if err := s.renderHead(s.w, page); err != nil {
		return err
	}
	s.flush()
	if err := s.renderBody(s.w, page); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, "</html>\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// FlushableWriter wraps an io.Writer and counts flushes. It implements
// http.Flusher for tests.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}
