package liveview

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	verrors "github.com/vango-dev/vcore/internal/errors"
	"github.com/vango-dev/vcore/pkg/metrics"
	"github.com/vango-dev/vcore/pkg/protocol"
	"github.com/vango-dev/vcore/pkg/recorder"
	"github.com/vango-dev/vcore/pkg/render"
	"github.com/vango-dev/vcore/pkg/vdom"
)

// DebugMode logs every frame sent and received.
var DebugMode = false

// Host errors.
var (
	ErrServerBusy    = errors.New("liveview: too many sessions")
	ErrServerClosed  = errors.New("liveview: server closed")
	ErrSessionClosed = errors.New("liveview: session closed")
	ErrNoConnection  = errors.New("liveview: session has no connection")
)

const tracerName = "github.com/vango-dev/vcore/pkg/liveview"

// Server hosts one component tree per WebSocket connection.
type Server struct {
	config   Config
	app      vdom.RenderFunc
	props    any
	logger   *slog.Logger
	metrics  *metrics.Collector
	recorder *recorder.Recorder
	tracer   trace.Tracer
	renderer *render.Renderer
	registry *vdom.Registry
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records engine and transport metrics and serves them on
// /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithRecorder records the frames of every session.
func WithRecorder(r *recorder.Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithTracerProvider sets the tracer provider for event and render spans.
// The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithProps sets the props passed to the root component.
func WithProps(props any) Option {
	return func(s *Server) {
		s.props = props
	}
}

// New creates a server whose sessions render app.
func New(app vdom.RenderFunc, config Config, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		config:   config,
		app:      app,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		renderer: render.NewRenderer(render.RendererConfig{}),
		registry: vdom.NewRegistry(),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "liveview")
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Handler returns the HTTP routes of the server: the page on "/", the
// WebSocket endpoint, "/healthz" and, with metrics, "/metrics".
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.ServePage)
	r.Get(s.config.SocketPath, s.HandleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d\n", s.SessionCount())
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ServePage server-renders the app into a full HTML page. Suspended
// components are resolved first, bounded by the write timeout.
func (s *Server) ServePage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.WriteTimeout)
	defer cancel()

	doc, err := render.Build(ctx, s.app, s.props, s.domOptions(s.logger)...)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.logger.Error("page render failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderPage(w, render.PageData{
		Body:         doc,
		Title:        s.config.Title,
		SocketPath:   s.config.SocketPath,
		ClientScript: s.config.ClientScript,
	}); err != nil {
		s.logger.Error("page write failed", "error", err)
	}
}

// HandleWebSocket upgrades the request and runs the handshake. A hello
// without a session id starts a new session; one with an id resumes that
// session if it is still held and can replay what the client missed.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		if s.metrics != nil {
			s.metrics.WebSocketError(err)
		}
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))

	hello, err := readClientHello(conn)
	if err != nil {
		s.logger.Warn("handshake failed",
			"error", verrors.New("E501").Wrap(err).FormatCompact(),
			"remote", r.RemoteAddr)
		s.reject(conn, protocol.HandshakeInvalidFormat)
		return
	}
	if !protocol.Version.Compatible(hello.Version) {
		s.logger.Warn("handshake version mismatch",
			"client", fmt.Sprintf("%d.%d", hello.Version.Major, hello.Version.Minor))
		s.reject(conn, protocol.HandshakeVersionMismatch)
		return
	}

	if hello.SessionID != "" {
		sess := s.Session(hello.SessionID)
		if sess == nil || !sess.attach(conn, hello.LastSeq) {
			s.logger.Info("session resume rejected",
				"session_id", hello.SessionID,
				"last_seq", hello.LastSeq)
			s.reject(conn, protocol.HandshakeSessionExpired)
			return
		}
		if s.metrics != nil {
			s.metrics.SessionResumed()
		}
		return
	}

	sess, err := s.newSession()
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		status := protocol.HandshakeInternalError
		if errors.Is(err, ErrServerBusy) {
			status = protocol.HandshakeServerBusy
		}
		s.reject(conn, status)
		return
	}
	sess.attach(conn, 0)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run()
	}()
}

func readClientHello(conn *websocket.Conn) (*protocol.ClientHello, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	if f.Type != protocol.FrameHello {
		return nil, fmt.Errorf("%w: %v", protocol.ErrUnexpectedFrame, f.Type)
	}
	return protocol.DecodeClientHello(f.Payload)
}

// reject answers a failed handshake and closes conn.
func (s *Server) reject(conn *websocket.Conn, status protocol.HandshakeStatus) {
	hello := &protocol.ServerHello{Status: status, ServerTime: uint64(time.Now().UnixMilli())}
	f := protocol.NewFrame(protocol.FrameHello, protocol.EncodeServerHello(hello))
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err == nil && s.metrics != nil {
		s.metrics.FrameSent(f.Type.String(), protocol.FrameHeaderSize+len(f.Payload))
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, status.String()),
		time.Now().Add(time.Second))
	conn.Close()
}

func (s *Server) domOptions(logger *slog.Logger) []vdom.Option {
	opts := []vdom.Option{
		vdom.WithLogger(logger),
		vdom.WithRegistry(s.registry),
		vdom.WithContext(s.ctx),
	}
	if s.metrics != nil {
		opts = append(opts, vdom.WithObserver(s.metrics))
	}
	return opts
}

func (s *Server) newSession() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServerClosed
	}
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return nil, ErrServerBusy
	}
	id := generateSessionID()
	sess := newSession(s, id)
	s.sessions[id] = sess
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	return sess, nil
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.id] != sess {
		return
	}
	delete(s.sessions, sess.id)
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
}

// Session returns the live or detached session with id, or nil.
func (s *Server) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// SessionCount returns the number of live and detached sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every session and waits for their loops to finish, or
// for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.closeWith(protocol.CloseServerShutdown, "server shutting down")
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("liveview shutdown complete", "sessions", len(sessions))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}
