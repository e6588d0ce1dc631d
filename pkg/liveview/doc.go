// Package liveview serves vdom component trees to remote renderers over
// WebSocket.
//
// Every connection gets its own VirtualDom. The server builds the tree,
// sends the mutations as the initial edit batch and then runs a loop that
// applies incoming event frames with HandleEvent, ticks the scheduler and
// ships each tick's mutations as a numbered batch. Batches are kept in a
// small history so a client that loses its connection can reconnect
// within the resume window and receive what it missed.
//
//	srv := liveview.New(app, liveview.DefaultConfig(),
//	    liveview.WithMetrics(metrics.New()),
//	)
//	http.ListenAndServe(":8080", srv.Handler())
//
// Routes:
//
//	GET /          server-rendered page
//	GET /ws        WebSocket endpoint
//	GET /healthz   liveness
//	GET /metrics   Prometheus metrics, with WithMetrics
//
// Client is a Go implementation of the renderer side that mirrors the
// session into a render.Document.
package liveview
