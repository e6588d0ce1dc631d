// Package config loads the vcore configuration file.
//
// The configuration lives in vcore.json or vcore.yaml at the project root.
// Durations are written as Go duration strings ("30s", "1m").
//
// # Configuration File Structure
//
//	server:
//	  host: localhost
//	  port: 8080
//	  shutdownTimeout: 10s
//	liveview:
//	  title: Counter
//	  socketPath: /ws
//	  heartbeatInterval: 30s
//	  resumeWindow: 30s
//	  maxSessions: 1000
//	  allowedOrigins: [example.com]
//	engine:
//	  debug: false
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  namespace: vcore
//	recorder:
//	  enabled: true
//	  backend: s3
//	  bucket: recordings
//	  prefix: sessions/
//	  region: eu-west-1
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := liveview.New(app, cfg.LiveviewConfig())
package config
