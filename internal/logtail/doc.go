// Package logtail provides utilities for reading and decoding log files.
//
// # Overview
//
// layerscope writes its own structured log to a file (stderr belongs to the
// terminal UI). This package reads the tail of that file and decodes each
// line so the TUI log pane can render and filter it.
//
// # Reading Log Files
//
// The Read function uses a ring buffer to extract the last maxLines from a
// file, regardless of file size. This approach:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in correct chronological order
//
// A maxLines of zero or less returns the whole file. A missing file is not
// an error: the logger may not have written anything yet.
//
// Example usage:
//
//	lines, err := logtail.Read(cfg.LogPath, 400)
//	if err != nil {
//		return err
//	}
//	entries := logtail.Filter(logtail.ParseLines(lines), zapcore.WarnLevel)
//
// # Decoding
//
// Parse understands the zap production encoder's JSON records:
//
//	{"level":"debug","ts":1700000000.5,"logger":"session","msg":"discarded stale response","command":"export_single_layer"}
//
// level, ts, logger and msg map onto Entry fields; caller and stacktrace
// are dropped; everything else becomes a sorted Field list. Lines that are
// not JSON objects (console encoder output, panics) are kept verbatim as
// unstructured info entries.
//
// # Rendering
//
// Entry.Text renders a compact single line:
//
//	21:01:05 DEBUG session: discarded stale response command=export_single_layer
//
// Coloring is left to the UI so it can follow the active theme.
package logtail
