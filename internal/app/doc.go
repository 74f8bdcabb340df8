// Package app provides the orchestration layer for the layerscope application.
//
// # Overview
//
// This package wires together configuration, logging, the backend client,
// the layer session, metrics and the UI. It serves as the composition root
// where all dependencies are initialized and connected, and it holds the
// bodies of the non-interactive subcommands.
//
// # Architecture
//
//  1. Load ~/.config/layerscope/config.toml and apply flag overrides
//  2. Initialize the global zap logger (to a file; the terminal is the UI's)
//  3. Build the HTTP backend client and a session.Session on top of it
//  4. Optionally serve /metrics
//  5. Ping the backend once; an unreachable backend is shown, not fatal
//  6. Launch the image list poller
//  7. Start the TUI and block until the user exits or the context cancels
//  8. Release the backend's working image tag and flush the log
//
// # Components
//
//   - app.go: setup, Run and the metrics endpoint
//   - poller.go: background image list refresh with exponential backoff
//   - commands.go: images, diff and analyze subcommands
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read config, apply overrides
//	       ├─────> logging.Init()       Global zap logger
//	       ├─────> backend.NewClient()  HTTP + SSE transport
//	       ├─────> session.New()        Layer session orchestrator
//	       ├─────> serveMetrics()       Optional Prometheus endpoint
//	       ├─────> StartPoller()        Launch image list refresh
//	       └─────> ui.Run()             Start TUI (blocks)
//
// # Polling Behavior
//
// The poller calls session.ListImages immediately and then every
// poll_interval (default 2s). After consecutive failures the wait doubles
// per failure up to 30 seconds; a success resets it. The session records
// the failure count so the UI can show an offline banner.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration
//   - Logger or backend client initialization failure
//
// Recoverable errors (logged, the UI keeps running):
//   - Backend unreachable at startup
//   - Image list refresh failures
//   - Metrics endpoint failures
//   - Cleanup of the working image at exit
//
// The images and diff subcommands ping the backend up to three times with
// backoff before giving up, since they have nothing to show without it.
package app
