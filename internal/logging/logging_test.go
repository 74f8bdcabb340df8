package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "layerscope.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	Named("session").Debug("layer selected")
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"layer selected"`) || !strings.Contains(out, `"logger":"session"`) {
		t.Fatalf("log output = %s", out)
	}

	SetLevel("error")
	Named("session").Info("hidden")
	_ = Sync()
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Fatal("SetLevel did not raise the level")
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger, level, err := New(Config{Level: "verbose", Format: "console", OutputPath: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if level.String() != "info" {
		t.Fatalf("level = %s, want info", level.String())
	}
}
