package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile")
	if err := os.WriteFile(path, []byte("FROM alpine:3.20\nRUN apk add --no-cache git\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"analyze", "--format", "yaml", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "base_image: alpine:3.20") && !strings.Contains(stdout.String(), "alpine:3.20") {
		t.Fatalf("output = %s", stdout.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		code int
	}{
		{"unknown command", []string{"frobnicate"}, 2},
		{"analyze without file", []string{"analyze"}, 2},
		{"diff without image", []string{"diff", "L0", "L1"}, 2},
		{"diff with one layer", []string{"diff", "--image", "img-1", "L0"}, 2},
		{"bad format", []string{"analyze", "--format", "xml", "Dockerfile"}, 1},
		{"unknown flag", []string{"analyze", "--nope"}, 1},
		{"help", []string{"help"}, 0},
		{"command help", []string{"analyze", "--help"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tc.args, &stdout, &stderr); code != tc.code {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tc.code, stderr.String())
			}
		})
	}
}
