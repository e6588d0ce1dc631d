package liveview

import (
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the liveview host.
type Config struct {
	// Title is the <title> of the served page.
	Title string

	// SocketPath is the WebSocket endpoint.
	// Default: "/ws".
	SocketPath string

	// ClientScript is the URL of the browser renderer script the page
	// loads. The host serves it; see render.PageData.
	ClientScript string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// HandshakeTimeout is the maximum time to wait for the ClientHello.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// ReadTimeout is the maximum time to wait for a message from the client.
	// It must be longer than HeartbeatInterval.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ResumeWindow is how long a disconnected session is kept for the
	// client to reconnect. 0 closes sessions with their connection.
	// Default: 30 seconds.
	ResumeWindow time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxSessions caps concurrent sessions, connected or detached.
	// 0 means no limit.
	MaxSessions int

	// MaxEventQueue is the size of a session's event buffer. Events past
	// it are rejected with ErrRateLimited.
	// Default: 256.
	MaxEventQueue int

	// HistorySize is the number of sent edit batches kept for resume.
	// Default: 100.
	HistorySize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Title:             "vcore",
		SocketPath:        "/ws",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ResumeWindow:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		MaxEventQueue:     256,
		HistorySize:       100,
	}
}

// withDefaults fills unset fields from DefaultConfig. ResumeWindow and
// MaxSessions keep their zero values.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SocketPath == "" {
		c.SocketPath = d.SocketPath
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.MaxEventQueue == 0 {
		c.MaxEventQueue = d.MaxEventQueue
	}
	if c.HistorySize == 0 {
		c.HistorySize = d.HistorySize
	}
	return c
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the Host header.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
