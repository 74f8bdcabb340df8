package ui

import (
	"reflect"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"  padded  ", 0, "padded"},
	}
	for _, tc := range tests {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddleKeepsFileName(t *testing.T) {
	got := truncateMiddle("/usr/lib/node_modules/lodash/index.js", 20)
	if got != "/usr/lib/n…/index.js" {
		t.Fatalf("truncateMiddle = %q", got)
	}
	if n := len([]rune(got)); n != 20 {
		t.Fatalf("length = %d, want 20", n)
	}
	if got := truncateMiddle("/etc/hosts", 20); got != "/etc/hosts" {
		t.Fatalf("short path changed: %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("padRight shortened input: %q", got)
	}
}

func TestWindowKeepsCursorVisible(t *testing.T) {
	tests := []struct {
		cursor, height, total, want int
	}{
		{0, 10, 5, 0},
		{3, 10, 100, 0},
		{50, 10, 100, 45},
		{99, 10, 100, 90},
	}
	for _, tc := range tests {
		start := window(tc.cursor, tc.height, tc.total)
		if start != tc.want {
			t.Errorf("window(%d, %d, %d) = %d, want %d", tc.cursor, tc.height, tc.total, start, tc.want)
		}
		if tc.cursor < start || tc.cursor >= start+tc.height {
			t.Errorf("cursor %d outside window starting at %d", tc.cursor, start)
		}
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("/app/dist/main.js")
	if !reflect.DeepEqual(got, []string{"/app", "/app/dist"}) {
		t.Fatalf("ancestors = %v", got)
	}
	if got := ancestors("/top"); got != nil {
		t.Fatalf("ancestors of a root entry = %v", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("sha256:0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("L1"); got != "L1" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestHighlight(t *testing.T) {
	plain := "just some notes"
	if got := highlight("/notes.unknownext", plain, "dracula"); got != plain {
		t.Fatalf("unknown type was highlighted: %q", got)
	}

	src := "package main\n\tfunc main() {}\n"
	got := highlight("/src/main.go", src, "dracula")
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("go source not highlighted: %q", got)
	}
	if strings.Contains(got, "\t") {
		t.Fatal("tabs were not expanded")
	}

	big := strings.Repeat("x", HighlightLimit+1)
	if got := highlight("/big.go", big, "dracula"); got != big {
		t.Fatal("oversized content was highlighted")
	}
}
