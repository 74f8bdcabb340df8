package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the content pane is
	// hidden and the tree takes the remaining width.
	LayoutCompactWidth = 100

	// LayoutSidebarWidth is the width of the image and layer column.
	LayoutSidebarWidth = 34
)

// Display limits.
const (
	// LogBufferLimit is the maximum number of log lines read into the log view.
	LogBufferLimit = 2000

	// FindResultLimit caps the fuzzy finder's result list.
	FindResultLimit = 50

	// HighlightLimit is the largest file content that gets syntax highlighting.
	HighlightLimit = 256 * 1024
)

// Timing constants.
const (
	// LogRefreshInterval is how often the log view re-reads the log file.
	LogRefreshInterval = time.Second
)
