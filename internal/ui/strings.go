package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// cut limits s to width runes without trimming, so indentation survives.
func cut(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	return string(runes[:width])
}

// truncateMiddle shortens a path by cutting its middle, keeping the root
// and the file name visible.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	ellipsis := []rune("…/")
	if limit <= len(ellipsis)+1 {
		return string(runes[:limit])
	}

	// Prefer cutting at a separator so the tail is a whole name.
	keep := limit - len(ellipsis)
	tail := runes[len(runes)-keep/2-keep%2:]
	if i := strings.IndexRune(string(tail), '/'); i >= 0 && i < len(tail)-1 {
		tail = []rune(string(tail)[i+1:])
	}
	head := runes[:keep-len(tail)]
	return string(head) + string(ellipsis) + string(tail)
}

// padRight pads a string with spaces to the given display width.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if width <= 0 || w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// clamp limits v to [lo, hi]. An empty range yields lo.
func clamp(v, lo, hi int) int {
	if hi < lo || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// window returns the first index of a height-row window that keeps cursor
// visible within total rows.
func window(cursor, height, total int) int {
	if height <= 0 || total <= height {
		return 0
	}
	start := cursor - height/2
	return clamp(start, 0, total-height)
}

// shortID abbreviates content digests the way docker prints them.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
