package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/backend/backendtest"
	"github.com/five82/layerscope/internal/report"
	"github.com/five82/layerscope/internal/session"
)

func diffGateway() *backendtest.Gateway {
	gw := backendtest.New()
	gw.Images = []backend.ImageSummary{{ID: "sha256:0123456789abcdef", Repository: "app", Tag: "latest", Size: "80MB"}}
	gw.Image = &backend.Image{
		ID:     "img-1",
		Name:   "app:latest",
		Layers: []backend.Layer{{ID: "L0"}, {ID: "L1"}, {ID: "L2"}},
	}
	gw.Diff = &backend.LayerDiff{
		Added:     []string{"/app/dist/main.js"},
		Modified:  []string{"/etc/hosts"},
		Unchanged: []string{"/bin/sh"},
	}
	return gw
}

func TestListImages(t *testing.T) {
	gw := diffGateway()
	var out bytes.Buffer
	if err := listImages(context.Background(), gw, report.FormatText, &out); err != nil {
		t.Fatalf("listImages returned error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "app:latest") || !strings.Contains(text, "sha256:0123") {
		t.Fatalf("output = %q", text)
	}

	gw.SetError(backend.CommandListImages, &backend.CommandError{Command: backend.CommandListImages, Message: "docker not running"})
	if err := listImages(context.Background(), gw, report.FormatText, &out); err == nil {
		t.Fatal("listImages returned nil error")
	}
}

func TestDiffLayers(t *testing.T) {
	gw := diffGateway()
	sess := session.New(gw, session.Options{})
	var out bytes.Buffer

	err := diffLayers(context.Background(), sess, DiffOptions{
		ImageID: "img-1",
		Layer1:  "L0",
		Layer2:  "L2",
		Format:  report.FormatJSON,
	}, &out)
	if err != nil {
		t.Fatalf("diffLayers returned error: %v", err)
	}
	if got := gw.Calls(backend.CommandCompareLayers); !reflect.DeepEqual(got, []string{"L0,L2"}) {
		t.Fatalf("compare calls = %v", got)
	}

	var got report.Comparison
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Image != "app:latest" || got.Summary.Added != 1 || got.Summary.Unchanged != 1 {
		t.Fatalf("comparison = %#v", got)
	}
	if len(got.Unchanged) != 0 {
		t.Fatalf("unchanged paths listed without IncludeUnchanged: %v", got.Unchanged)
	}
}

func TestDiffLayersValidation(t *testing.T) {
	gw := diffGateway()
	sess := session.New(gw, session.Options{})
	ctx := context.Background()

	cases := []DiffOptions{
		{Layer1: "L0", Layer2: "L1"},
		{ImageID: "img-1", Layer1: "L0"},
		{ImageID: "img-1", Layer1: "L1", Layer2: "L1"},
	}
	for _, opts := range cases {
		if err := diffLayers(ctx, sess, opts, &bytes.Buffer{}); err == nil {
			t.Fatalf("diffLayers(%#v) returned nil error", opts)
		}
	}
	if gw.CallCount(backend.CommandRetagImage) != 0 {
		t.Fatal("invalid diff reached the backend")
	}

	err := diffLayers(ctx, sess, DiffOptions{ImageID: "img-1", Layer1: "L0", Layer2: "L9"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "L9") {
		t.Fatalf("unknown layer error = %v", err)
	}
	if gw.CallCount(backend.CommandCompareLayers) != 0 {
		t.Fatal("compare called with an unknown layer")
	}
}

func TestAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile")
	content := "FROM node:20\nCOPY . /app\nRUN npm ci\nRUN npm run build\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	if err := Analyze(path, report.FormatText, &out); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Dockerfile", "Base image: node:20", "Multiple RUN instructions"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	if err := Analyze(filepath.Join(t.TempDir(), "missing"), report.FormatText, &out); err == nil {
		t.Fatal("Analyze of a missing file returned nil error")
	}
}
