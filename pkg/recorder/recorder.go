// Package recorder captures the protocol frames of liveview sessions so a
// session can be replayed later against a render.Document.
//
// A recording starts with a 5-byte header followed by entries:
//
//	"VREC" version
//	entry: direction(1) elapsed-ms(uvarint) frame(len-prefixed)
//
// Finished recordings are written to a Store. DiskStore keeps them in a
// local directory; S3Store uploads them to a bucket.
package recorder

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/vcore/pkg/protocol"
)

// ContentType is the media type of stored recordings.
const ContentType = "application/x-vcore-recording"

// DefaultMaxBytes caps one recording (8MB).
const DefaultMaxBytes = 8 * 1024 * 1024

const (
	magic   = "VREC"
	version = 1
)

// Direction says which peer sent a frame.
type Direction uint8

const (
	// In is a frame received from the client.
	In Direction = iota
	// Out is a frame sent to the client.
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// ErrClosed is returned when recording into a closed session.
var ErrClosed = errors.New("recorder: session closed")

// Recorder starts sessions that write to one Store.
type Recorder struct {
	store    Store
	maxBytes int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxBytes caps the size of one recording. Frames past the cap are
// dropped and the recording is marked truncated.
func WithMaxBytes(n int) Option {
	return func(r *Recorder) {
		r.maxBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// New returns a recorder writing to store.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the recorder's store.
func (r *Recorder) Store() Store { return r.store }

// Start begins recording a session. An empty sessionID gets a random one.
func (r *Recorder) Start(sessionID string) *Session {
	if sessionID == "" {
		sessionID = newID()
	}
	s := &Session{
		rec:     r,
		enc:     protocol.NewEncoder(),
		started: r.now(),
		meta:    Meta{SessionID: sessionID},
	}
	s.meta.StartedAt = s.started
	s.enc.WriteBytes([]byte(magic))
	s.enc.WriteByte(version)
	return s
}

// Session buffers the frames of one connection until Close.
type Session struct {
	rec     *Recorder
	mu      sync.Mutex
	enc     *protocol.Encoder
	started time.Time
	meta    Meta
	closed  bool
}

// ID returns the recorded session's id.
func (s *Session) ID() string { return s.meta.SessionID }

// Key is the store key the recording is written under.
func (s *Session) Key() string {
	return fmt.Sprintf("%s-%d.vrec", s.meta.SessionID, s.started.Unix())
}

// Record appends one frame. It is safe for concurrent use.
func (s *Session) Record(dir Direction, f *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.meta.Truncated {
		return nil
	}
	data := f.Encode()
	if s.enc.Len()+len(data)+1+2*protocol.MaxVarintLen > s.rec.maxBytes {
		s.meta.Truncated = true
		s.rec.logger.Warn("recording truncated",
			"session", s.meta.SessionID,
			"bytes", s.enc.Len())
		return nil
	}
	s.enc.WriteByte(byte(dir))
	s.enc.WriteUvarint(uint64(s.rec.now().Sub(s.started).Milliseconds()))
	s.enc.WriteLenBytes(data)
	s.meta.Frames++
	return nil
}

// Close writes the recording to the store. Later calls are no-ops.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.meta.EndedAt = s.rec.now()
	s.meta.Bytes = s.enc.Len()
	data := bytes.Clone(s.enc.Bytes())
	meta := s.meta
	s.mu.Unlock()

	if err := s.rec.store.Put(ctx, s.Key(), data, meta); err != nil {
		s.rec.logger.Error("recording not saved", "session", meta.SessionID, "error", err)
		return err
	}
	s.rec.logger.Debug("recording saved",
		"session", meta.SessionID,
		"frames", meta.Frames,
		"bytes", meta.Bytes)
	return nil
}

// Meta returns a snapshot of the session's metadata.
func (s *Session) Meta() Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
