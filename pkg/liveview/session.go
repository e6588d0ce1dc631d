package liveview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	verrors "github.com/vango-dev/vcore/internal/errors"
	"github.com/vango-dev/vcore/pkg/protocol"
	"github.com/vango-dev/vcore/pkg/recorder"
	"github.com/vango-dev/vcore/pkg/vdom"
)

// Session is one component tree served to one client. It outlives its
// connection by Config.ResumeWindow so a client can reconnect.
//
// The VirtualDom is owned by the session's run loop. Read loops only
// decode frames and queue events for it.
type Session struct {
	id     string
	server *Server
	config *Config
	logger *slog.Logger
	dom    *vdom.VirtualDom
	rec    *recorder.Session

	// mu guards the connection and everything written to it.
	mu   sync.Mutex
	conn *websocket.Conn
	gen  uint64
	seq  uint64
	hist *history

	acked  atomic.Uint64
	events chan *protocol.Event
	done   chan struct{}
	closed atomic.Bool

	eventCount atomic.Uint64
	batchCount atomic.Uint64
	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
}

func newSession(s *Server, id string) *Session {
	logger := s.logger.With("session_id", id)
	sess := &Session{
		id:     id,
		server: s,
		config: &s.config,
		logger: logger,
		hist:   newHistory(s.config.HistorySize),
		events: make(chan *protocol.Event, s.config.MaxEventQueue),
		done:   make(chan struct{}),
	}
	opts := append(s.domOptions(logger), vdom.WithErrorHandler(func(scope vdom.ScopeID, err error) {
		sess.logger.Error("render error", "scope", scope.String(), "error", err)
		sess.sendError(protocol.NewError(protocol.ErrServerError, err.Error()))
	}))
	sess.dom = vdom.New(s.app, s.props, opts...)
	if s.recorder != nil {
		sess.rec = s.recorder.Start(id)
	}
	return sess
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// IsClosed reports whether the session has ended.
func (s *Session) IsClosed() bool { return s.closed.Load() }

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Seq returns the sequence number of the last edit batch produced.
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Acked returns the last batch the client acknowledged.
func (s *Session) Acked() uint64 { return s.acked.Load() }

// attach makes conn the session's connection. The client has applied
// every batch up to lastSeq; attach answers the hello and replays the
// batches after it. It returns false if those are no longer held.
func (s *Session) attach(conn *websocket.Conn, lastSeq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	missed, ok := s.hist.since(lastSeq, s.seq)
	if !ok {
		return false
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.gen++
	gen := s.gen

	hello := &protocol.ServerHello{
		Status:     protocol.HandshakeOK,
		SessionID:  s.id,
		NextSeq:    lastSeq + 1,
		ServerTime: uint64(time.Now().UnixMilli()),
	}
	// A failed write closes conn, so the read loop fails at once and
	// detaches the session.
	err := s.writeLocked(protocol.NewFrame(protocol.FrameHello, protocol.EncodeServerHello(hello)))
	for _, data := range missed {
		if err != nil {
			break
		}
		err = s.writeRawLocked(protocol.FrameEdits, data)
	}
	s.logger.Info("session attached", "last_seq", lastSeq, "replayed", len(missed), "error", err)

	go s.readLoop(conn, gen)
	return true
}

// detach drops connection gen. The session is closed unless the client
// reconnects within the resume window.
func (s *Session) detach(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.conn.Close()
	s.conn = nil
	s.mu.Unlock()

	window := s.config.ResumeWindow
	s.logger.Info("session detached", "error", cause, "resume_window", window)
	if window <= 0 {
		s.Close()
		return
	}
	time.AfterFunc(window, func() {
		s.mu.Lock()
		expired := s.conn == nil && s.gen == gen
		s.mu.Unlock()
		if expired {
			s.logger.Info("session expired")
			s.Close()
		}
	})
}

// readLoop decodes frames from conn until it fails.
func (s *Session) readLoop(conn *websocket.Conn, gen uint64) {
	var cause error
	defer func() { s.detach(gen, cause) }()

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				if m := s.server.metrics; m != nil {
					m.WebSocketError(err)
				}
			}
			cause = err
			return
		}
		s.bytesRecv.Add(uint64(len(msg)))

		f, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", verrors.New("E501").Wrap(err).FormatCompact())
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}
		if m := s.server.metrics; m != nil {
			m.FrameReceived(f.Type.String(), len(msg))
		}
		if s.rec != nil {
			s.rec.Record(recorder.In, f)
		}
		if DebugMode {
			s.logger.Debug("frame received", "type", f.Type.String(), "bytes", len(msg))
		}

		switch f.Type {
		case protocol.FrameEvent:
			if !s.queueEvent(f.Payload) {
				return
			}

		case protocol.FrameControl:
			c, err := protocol.DecodeControl(f.Payload)
			if err != nil {
				s.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
				continue
			}
			switch c.Type {
			case protocol.ControlPing:
				s.send(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(c))))
			case protocol.ControlPong:
				s.logger.Debug("received pong", "rtt_ms", time.Now().UnixMilli()-int64(c.Timestamp))
			case protocol.ControlClose:
				s.logger.Info("client closing", "reason", c.Reason.String(), "message", c.Message)
				s.Close()
				return
			}

		case protocol.FrameAck:
			a, err := protocol.DecodeAck(f.Payload)
			if err != nil {
				s.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
				continue
			}
			s.acked.Store(a.LastSeq)

		default:
			s.logger.Warn("unexpected frame type", "type", f.Type.String())
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, "unexpected "+f.Type.String()+" frame"))
		}
	}
}

// queueEvent hands an event to the run loop. It returns false once the
// session is closed.
func (s *Session) queueEvent(payload []byte) bool {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.sendError(protocol.NewError(protocol.ErrInvalidEvent, err.Error()))
		return true
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	default:
		s.sendError(protocol.NewError(protocol.ErrRateLimited, "event queue full"))
		return true
	}
}

// run builds the tree, sends it as the initial batch and then serves
// events, woken tasks and heartbeats until the session closes.
func (s *Session) run() {
	defer s.finish()

	m := &vdom.Mutations{}
	if err := s.dom.Rebuild(m); err != nil {
		s.logger.Error("rebuild failed", "error", err)
		s.closeWith(protocol.CloseError, err.Error())
		return
	}
	s.dom.RenderImmediate(m)
	s.flush(m, protocol.FlagInitial)

	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.dispatch(ev)
			s.render(m)
		case <-s.dom.Notify():
			s.render(m)
		case <-heartbeat.C:
			if err := s.ping(); err != nil && err != ErrNoConnection {
				s.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

func (s *Session) dispatch(ev *protocol.Event) {
	s.eventCount.Add(1)
	_, span := s.server.tracer.Start(s.server.ctx, "liveview.event",
		trace.WithAttributes(
			attribute.String("vcore.session_id", s.id),
			attribute.String("vcore.event", ev.Name),
			attribute.Int64("vcore.target", int64(ev.Target)),
			attribute.Int64("vcore.event_seq", int64(ev.Seq)),
		))
	defer span.End()

	e := s.dom.HandleEvent(ev.Name, ev.Data, ev.Target, ev.Bubbles)
	if e == nil {
		span.SetStatus(codes.Error, "unknown target")
		s.sendError(protocol.NewError(protocol.ErrUnknownTarget,
			fmt.Sprintf("%s on %s", ev.Name, ev.Target)))
		return
	}
	span.SetAttributes(
		attribute.Bool("vcore.default_prevented", e.DefaultPrevented()),
		attribute.Bool("vcore.propagates", e.Propagates()),
	)
}

func (s *Session) render(m *vdom.Mutations) {
	if !s.dom.HasPendingWork() {
		return
	}
	_, span := s.server.tracer.Start(s.server.ctx, "liveview.render",
		trace.WithAttributes(attribute.String("vcore.session_id", s.id)))
	defer span.End()

	s.dom.RenderImmediate(m)
	span.SetAttributes(attribute.Int("vcore.edits", m.Len()))
	if err := s.flush(m, 0); err != nil {
		span.RecordError(err)
	}
}

// flush sends the buffered edits as one batch. Empty batches are only
// sent when flags are set.
func (s *Session) flush(m *vdom.Mutations, flags protocol.FrameFlags) error {
	if m.Len() == 0 && flags == 0 {
		return nil
	}
	if s.dom.TaskCount() == 0 {
		flags |= protocol.FlagFinal
	}
	return s.sendEdits(m.Take(), flags)
}

// sendEdits numbers a batch, keeps it for resume and writes it if a
// client is attached.
func (s *Session) sendEdits(edits []vdom.Mutation, flags protocol.FrameFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.seq++
	f := &protocol.Frame{
		Type:    protocol.FrameEdits,
		Flags:   flags,
		Payload: protocol.EncodeEdits(&protocol.EditBatch{Seq: s.seq, Edits: edits}),
	}
	data := f.Encode()
	s.hist.add(s.seq, data)
	s.batchCount.Add(1)
	if s.rec != nil {
		s.rec.Record(recorder.Out, f)
	}
	if s.conn == nil {
		return nil
	}
	return s.writeRawLocked(f.Type, data)
}

// send writes a non-edit frame to the attached client.
func (s *Session) send(f *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.writeLocked(f)
}

func (s *Session) sendError(em *protocol.ErrorMessage) {
	if err := s.send(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))); err != nil {
		s.logger.Debug("error frame not sent", "code", em.Code.String(), "error", err)
	}
}

func (s *Session) ping() error {
	ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
	return s.send(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping)))
}

func (s *Session) writeLocked(f *protocol.Frame) error {
	if s.conn == nil {
		return ErrNoConnection
	}
	if s.rec != nil {
		s.rec.Record(recorder.Out, f)
	}
	return s.writeRawLocked(f.Type, f.Encode())
}

// writeRawLocked writes an encoded frame. A failed write closes the
// connection; its read loop then detaches the session.
func (s *Session) writeRawLocked(ft protocol.FrameType, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("write error", "error", err, "frame", ft.String())
		if m := s.server.metrics; m != nil {
			m.WebSocketError(err)
		}
		s.conn.Close()
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	if m := s.server.metrics; m != nil {
		m.FrameSent(ft.String(), len(data))
	}
	if DebugMode {
		s.logger.Debug("frame sent", "type", ft.String(), "bytes", len(data))
	}
	return nil
}

// Close ends the session with a normal close.
func (s *Session) Close() {
	s.closeWith(protocol.CloseNormal, "")
}

func (s *Session) closeWith(reason protocol.CloseReason, message string) {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.server.removeSession(s)

	s.mu.Lock()
	if s.conn != nil {
		// closed is already set, so write directly.
		s.writeLocked(protocol.NewFrame(protocol.FrameControl,
			protocol.EncodeControl(protocol.NewClose(reason, message))))
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	s.logger.Info("session closed",
		"reason", reason.String(),
		"events", s.eventCount.Load(),
		"batches", s.batchCount.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load())
}

// finish runs when the run loop exits. The VirtualDom belongs to the run
// loop, so it is closed here rather than in Close.
func (s *Session) finish() {
	s.Close()
	s.dom.Close()
	if s.rec != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		defer cancel()
		if err := s.rec.Close(ctx); err != nil {
			s.logger.Warn("recording not saved", "error", err)
		}
	}
}
