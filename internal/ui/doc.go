// Package ui implements the layerscope terminal browser on Bubble Tea.
//
// The Model never talks to the backend directly. Every action goes through
// the session.Session: user input becomes a tea.Cmd that calls a session
// operation off the update loop, and a long-lived command waits on
// session.Changes and re-reads the Snapshot whenever state moves. Stale
// backend responses are therefore already filtered out by the time the
// UI sees them.
//
// # Views
//
//   - Browser: image list, layer list, filesystem tree and file content
//   - Comparison: the four-way diff of two selected layers
//   - Logs: the application's own zap log file, filtered by level
//   - Build file: a Dockerfile editor with live layer analysis
//
// The theme and the last selected image persist to the preferences file.
package ui
