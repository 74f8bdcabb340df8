package buildfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# syntax=docker/dockerfile:1
FROM node:20-slim

workdir /app
COPY package.json .
RUN apt-get update && \
    apt-get install -y git \
    curl
RUN npm ci
ENV NODE_ENV=production
HEALTHCHECK CMD curl -f http://localhost/
CMD ["node", "server.js"]
ONBUILD
`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if doc.BaseImage != "node:20-slim" {
		t.Fatalf("BaseImage = %q", doc.BaseImage)
	}
	if len(doc.Instructions) != 8 {
		t.Fatalf("got %d instructions: %#v", len(doc.Instructions), doc.Instructions)
	}

	wd := doc.Instructions[1]
	if wd.Keyword != "WORKDIR" || wd.Args != "/app" || wd.Line != 4 {
		t.Fatalf("workdir = %#v", wd)
	}

	run := doc.Instructions[3]
	if run.Keyword != "RUN" || run.Line != 6 {
		t.Fatalf("run = %#v", run)
	}
	if want := "apt-get update && apt-get install -y git curl"; run.Args != want {
		t.Fatalf("joined args = %q, want %q", run.Args, want)
	}
}

func TestParseDanglingContinuation(t *testing.T) {
	doc, err := Parse(strings.NewReader("FROM alpine\nRUN echo a \\\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(doc.Instructions) != 2 || doc.Instructions[1].Args != "echo a" {
		t.Fatalf("instructions = %#v", doc.Instructions)
	}
}

func TestParseFileSetsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile.dev")
	if err := os.WriteFile(path, []byte("FROM scratch\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if doc.Name != "Dockerfile.dev" || doc.BaseImage != "scratch" {
		t.Fatalf("doc = %#v", doc)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("ParseFile of missing file returned nil error")
	}
}

func TestAnalyze(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	a := Analyze(doc)

	if a.BaseImage != "node:20-slim" {
		t.Fatalf("BaseImage = %q", a.BaseImage)
	}
	if a.Counts["RUN"] != 2 || a.Counts["COPY"] != 1 {
		t.Fatalf("counts = %v", a.Counts)
	}
	if a.NewLayers != 4 {
		t.Fatalf("NewLayers = %d, want 4", a.NewLayers)
	}

	impacts := map[string]Impact{}
	for _, im := range a.Impacts {
		impacts[im.Keyword] = im.Impact
	}
	if impacts["ENV"] != ImpactMetadata || impacts["HEALTHCHECK"] != ImpactUnknown || impacts["COPY"] != ImpactNewLayer {
		t.Fatalf("impacts = %v", impacts)
	}

	titles := map[string]bool{}
	for _, s := range a.Suggestions {
		titles[s.Title] = true
	}
	for _, want := range []string{"Multiple RUN instructions", "Missing apt cleanup", "Dependency caching"} {
		if !titles[want] {
			t.Fatalf("missing suggestion %q in %v", want, a.Suggestions)
		}
	}
}

func TestAnalyzeCleanBuild(t *testing.T) {
	doc, _ := Parse(strings.NewReader("FROM debian\nRUN apt-get install -y curl && apt-get clean\nCOPY . /src\n"))
	a := Analyze(doc)
	if len(a.Suggestions) != 0 {
		t.Fatalf("suggestions = %v, want none", a.Suggestions)
	}
	if got := a.Keywords(); strings.Join(got, ",") != "COPY,FROM,RUN" {
		t.Fatalf("Keywords() = %v", got)
	}
}

func TestImpactMarshalText(t *testing.T) {
	b, _ := ImpactMetadata.MarshalText()
	if string(b) != "metadata" {
		t.Fatalf("MarshalText = %q", b)
	}
}

func TestLookupCommand(t *testing.T) {
	c, ok := Lookup(" run ")
	if !ok || c.Keyword != "RUN" || c.Example == "" {
		t.Fatalf("Lookup(run) = %#v,%v", c, ok)
	}
	if _, ok := Lookup("HEALTHCHECK"); ok {
		t.Fatal("Lookup(HEALTHCHECK) found an entry")
	}
}
