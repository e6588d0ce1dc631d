package liveview

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vcore/pkg/protocol"
	"github.com/vango-dev/vcore/pkg/render"
	"github.com/vango-dev/vcore/pkg/vdom"
)

// HandshakeError is returned by Dial when the server refuses the hello.
type HandshakeError struct {
	Status protocol.HandshakeStatus
}

func (e *HandshakeError) Error() string {
	return "liveview: handshake refused: " + e.Status.String()
}

// Client is a remote renderer: it mirrors a session's tree into a
// render.Document and sends events back. It is used by tests, the bench
// command and headless tooling. A Client is not safe for concurrent use.
type Client struct {
	conn *websocket.Conn
	url  string

	// Doc mirrors the session's tree.
	Doc *render.Document
	// SessionID is the id assigned by the server.
	SessionID string
	// LastSeq is the last edit batch applied to Doc.
	LastSeq uint64
	// Errors collects non-fatal error frames.
	Errors []*protocol.ErrorMessage
	// Closed holds the server's close message, if one was received.
	Closed *protocol.Control

	eventSeq uint64
	// AutoAck acknowledges every applied batch.
	AutoAck bool
}

// Dial connects to the WebSocket endpoint at url and starts a new session.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	c := &Client{url: url, Doc: render.NewDocument(), AutoAck: true}
	if err := c.connect(ctx, header, &protocol.ClientHello{Version: protocol.Version}); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconnect opens a new connection and resumes the session, keeping Doc.
// Batches the client missed are delivered by the following Next calls.
func (c *Client) Reconnect(ctx context.Context, header http.Header) error {
	if c.conn != nil {
		c.conn.Close()
	}
	return c.connect(ctx, header, &protocol.ClientHello{
		Version:   protocol.Version,
		SessionID: c.SessionID,
		LastSeq:   c.LastSeq,
	})
}

func (c *Client) connect(ctx context.Context, header http.Header, hello *protocol.ClientHello) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}
	c.conn = conn
	if err := c.write(protocol.NewFrame(protocol.FrameHello, protocol.EncodeClientHello(hello))); err != nil {
		conn.Close()
		return err
	}
	f, err := c.read(ctx)
	if err != nil {
		conn.Close()
		return err
	}
	if f.Type != protocol.FrameHello {
		conn.Close()
		return fmt.Errorf("%w: %v before hello", protocol.ErrUnexpectedFrame, f.Type)
	}
	sh, err := protocol.DecodeServerHello(f.Payload)
	if err != nil {
		conn.Close()
		return err
	}
	if sh.Status != protocol.HandshakeOK {
		conn.Close()
		return &HandshakeError{Status: sh.Status}
	}
	c.SessionID = sh.SessionID
	return nil
}

// Send submits an event on target. Bubbling follows protocol.Bubbling.
func (c *Client) Send(name string, target vdom.ElementID, data any) error {
	c.eventSeq++
	ev := &protocol.Event{
		Seq:     c.eventSeq,
		Name:    name,
		Target:  target,
		Bubbles: protocol.Bubbling(name),
		Data:    data,
	}
	return c.write(protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(ev)))
}

// Next reads and handles one frame: edits are applied to Doc, pings are
// answered, errors are collected. A fatal error frame is returned as an
// error.
func (c *Client) Next(ctx context.Context) (*protocol.Frame, error) {
	f, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	switch f.Type {
	case protocol.FrameEdits:
		b, err := protocol.DecodeEdits(f.Payload)
		if err != nil {
			return f, err
		}
		if b.Seq != c.LastSeq+1 {
			return f, fmt.Errorf("liveview: batch %d out of order after %d", b.Seq, c.LastSeq)
		}
		if err := c.Doc.Apply(b.Edits); err != nil {
			return f, err
		}
		c.LastSeq = b.Seq
		if c.AutoAck {
			ack := &protocol.Ack{LastSeq: b.Seq}
			if err := c.write(protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(ack))); err != nil {
				return f, err
			}
		}

	case protocol.FrameControl:
		ctl, err := protocol.DecodeControl(f.Payload)
		if err != nil {
			return f, err
		}
		switch ctl.Type {
		case protocol.ControlPing:
			return f, c.write(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(ctl))))
		case protocol.ControlClose:
			c.Closed = ctl
		}

	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(f.Payload)
		if err != nil {
			return f, err
		}
		if em.Fatal {
			return f, em
		}
		c.Errors = append(c.Errors, em)
	}
	return f, nil
}

// Sync reads frames until an edit batch marked final has been applied.
func (c *Client) Sync(ctx context.Context) error {
	for {
		f, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if f.Type == protocol.FrameEdits && f.Flags.Has(protocol.FlagFinal) {
			return nil
		}
		if c.Closed != nil {
			return fmt.Errorf("liveview: session closed: %s", c.Closed.Reason)
		}
	}
}

// HTML renders Doc.
func (c *Client) HTML() (string, error) {
	return render.NewRenderer(render.RendererConfig{}).RenderToString(c.Doc)
}

// Close ends the session and the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.write(protocol.NewFrame(protocol.FrameControl,
		protocol.EncodeControl(protocol.NewClose(protocol.CloseNormal, ""))))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Drop closes the connection without ending the session, as a network
// failure would.
func (c *Client) Drop() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) write(f *protocol.Frame) error {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

func (c *Client) read(ctx context.Context) (*protocol.Frame, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Minute)
	}
	c.conn.SetReadDeadline(deadline)
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeFrame(msg)
}

// Find returns the first element of Doc with tag, depth first.
func (c *Client) Find(tag string) *render.Node {
	if all := c.FindAll(tag); len(all) > 0 {
		return all[0]
	}
	return nil
}

// FindAll returns the elements of Doc with tag in document order.
func (c *Client) FindAll(tag string) []*render.Node {
	var out []*render.Node
	var walk func(n *render.Node)
	walk = func(n *render.Node) {
		if n.Kind == render.KindElement && n.Tag == tag {
			out = append(out, n)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(c.Doc.Root())
	return out
}
