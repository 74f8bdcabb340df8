package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultBackendAddr {
		t.Fatalf("host = %q, want %q", u.Host, defaultBackendAddr)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestClient_PostsCommandsWithArguments(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	got := make(map[string]map[string]string)
	var gotMethod, gotUserAgent string

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		command := strings.TrimPrefix(r.URL.Path, "/api/commands/")
		args := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&args)
		mu.Lock()
		gotMethod = r.Method
		gotUserAgent = r.Header.Get("User-Agent")
		got[command] = args
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch command {
		case CommandListImages:
			_ = json.NewEncoder(w).Encode([]ImageSummary{{ID: "img-1", Repository: "alpine", Tag: "3.19"}})
		case CommandRetagImage:
			_ = json.NewEncoder(w).Encode("Successfully tagged image img-1 as layers:latest")
		case CommandExportImageLayers:
			_ = json.NewEncoder(w).Encode(Image{ID: "img-1", Layers: []Layer{{ID: "L0"}, {ID: "L1"}}})
		case CommandExtractDirectory:
			_ = json.NewEncoder(w).Encode([]Entry{{Name: "x", Type: EntryTypeFile, Path: args["dirPath"] + "/x"}})
		case CommandCompareLayers:
			_ = json.NewEncoder(w).Encode(LayerDiff{Added: []string{"/a"}})
		default:
			http.NotFound(w, r)
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	images, err := c.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages returned error: %v", err)
	}
	if len(images) != 1 || images[0].Reference() != "alpine:3.19" {
		t.Fatalf("ListImages = %#v, want alpine:3.19", images)
	}

	if _, err := c.RetagImage(ctx, "img-1"); err != nil {
		t.Fatalf("RetagImage returned error: %v", err)
	}
	if args := argsFor(&mu, got, CommandRetagImage); args["imageId"] != "img-1" {
		t.Fatalf("retag args = %v, want imageId=img-1", args)
	}

	img, err := c.ExportImageLayers(ctx)
	if err != nil {
		t.Fatalf("ExportImageLayers returned error: %v", err)
	}
	if len(img.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(img.Layers))
	}

	entries, err := c.ExtractDirectory(ctx, "/fs/usr", "L1")
	if err != nil {
		t.Fatalf("ExtractDirectory returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "/fs/usr/x" {
		t.Fatalf("entries = %#v", entries)
	}
	if args := argsFor(&mu, got, CommandExtractDirectory); args["dirPath"] != "/fs/usr" || args["layerId"] != "L1" {
		t.Fatalf("extract args = %v", args)
	}

	diff, err := c.CompareLayers(ctx, "L0", "L1")
	if err != nil {
		t.Fatalf("CompareLayers returned error: %v", err)
	}
	if diff.Changed() != 1 {
		t.Fatalf("diff changed = %d, want 1", diff.Changed())
	}
	if args := argsFor(&mu, got, CommandCompareLayers); args["layer1Id"] != "L0" || args["layer2Id"] != "L1" {
		t.Fatalf("compare args = %v", args)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotMethod != http.MethodPost {
		t.Fatalf("method = %q, want POST", gotMethod)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}
}

func argsFor(mu *sync.Mutex, got map[string]map[string]string, command string) map[string]string {
	mu.Lock()
	defer mu.Unlock()
	return got[command]
}

func TestClient_SurfacesBackendErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/api/commands/") {
		case CommandReadLayerFile:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(errorPayload{Error: "File is too large to display", Kind: ErrorKindUnreadable})
		case CommandExportSingleLayer:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorPayload{Error: "Layer not found: L9"})
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))

	ctx := context.Background()

	_, err := c.ReadLayerFile(ctx, "/fs/big.bin")
	if err == nil {
		t.Fatal("ReadLayerFile returned nil error")
	}
	if !IsUnreadable(err) {
		t.Fatalf("IsUnreadable(%v) = false, want true", err)
	}
	if err.Error() != "File is too large to display" {
		t.Fatalf("error = %q", err.Error())
	}

	_, err = c.ExportSingleLayer(ctx, "L9")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error %v is not a CommandError", err)
	}
	if cmdErr.Command != CommandExportSingleLayer || cmdErr.Message != "Layer not found: L9" {
		t.Fatalf("CommandError = %#v", cmdErr)
	}
	if IsUnreadable(err) {
		t.Fatal("IsUnreadable = true for an export failure")
	}

	_, err = c.GetLayerFiles(ctx, "L0")
	if err == nil || err.Error() != "boom" {
		t.Fatalf("GetLayerFiles error = %v, want boom", err)
	}
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	healthy.Store(true)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	healthy.Store(false)
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("Ping returned nil error for unhealthy backend")
	}
}

func TestReadEvents_ParsesTaskStatus(t *testing.T) {
	body := strings.Join([]string{
		": keepalive",
		"event: task_status",
		`data: {"message":"Exporting layer...","progress":0.5,"is_complete":false}`,
		"",
		"event: other",
		`data: {"message":"ignored"}`,
		"",
		`data: {"message":"untyped","progress":0.9}`,
		"",
		"event: task_status",
		`data: {"message":"Done","progress":1.7,"is_complete":true}`,
		"",
		"event: task_status",
		"data: not json",
		"",
	}, "\n")

	var got []TaskStatus
	err := readEvents(context.Background(), bufio.NewScanner(strings.NewReader(body)), func(s TaskStatus) {
		got = append(got, s)
	})
	if !errors.Is(err, errStreamClosed) {
		t.Fatalf("readEvents error = %v, want errStreamClosed", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %#v", len(got), got)
	}
	if got[0].Message != "Exporting layer..." || got[0].Progress != 0.5 || got[0].IsComplete {
		t.Fatalf("first event = %#v", got[0])
	}
	if got[1].Message != "Done" || got[1].Progress != 1 || !got[1].IsComplete {
		t.Fatalf("second event not clamped/complete: %#v", got[1])
	}
}

func TestSubscribeTaskStatus_StreamsUntilClosed(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: task_status\ndata: {\"message\":\"Retagging\",\"progress\":0.1}\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))

	sub, err := c.SubscribeTaskStatus(context.Background())
	if err != nil {
		t.Fatalf("SubscribeTaskStatus returned error: %v", err)
	}

	select {
	case status := <-sub.C:
		if status.Message != "Retagging" {
			t.Fatalf("status = %#v", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task status")
	}

	sub.Close()
	sub.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed after Close")
		}
	}
}
