// Package backendtest provides an in-memory backend.Gateway for tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/layerscope/internal/backend"
)

// Gateway is a scriptable backend. Populate the exported fields before
// handing it to the code under test; they are read under the gateway lock.
type Gateway struct {
	mu sync.Mutex

	Images       []backend.ImageSummary
	Image        *backend.Image
	LayerExports map[string][]backend.Entry // ExportSingleLayer by layer ID
	LayerFiles   map[string][]backend.Entry // GetLayerFiles by layer ID
	Directories  map[string][]backend.Entry // ExtractDirectory by path
	Files        map[string]string          // ReadLayerFile by path
	FileErrors   map[string]error           // ReadLayerFile failures by path
	Diff         *backend.LayerDiff
	Errors       map[string]error // failures by command name

	// Progress, when set, is published to subscribers at the start of a
	// command keyed by command name.
	Progress map[string][]backend.TaskStatus

	calls map[string][]string
	gates map[string]*Gate
	subs  map[chan backend.TaskStatus]struct{}
}

var _ backend.Gateway = (*Gateway)(nil)

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{
		LayerExports: make(map[string][]backend.Entry),
		LayerFiles:   make(map[string][]backend.Entry),
		Directories:  make(map[string][]backend.Entry),
		Files:        make(map[string]string),
		FileErrors:   make(map[string]error),
		Errors:       make(map[string]error),
		Progress:     make(map[string][]backend.TaskStatus),
		calls:        make(map[string][]string),
		gates:        make(map[string]*Gate),
		subs:         make(map[chan backend.TaskStatus]struct{}),
	}
}

// Gate holds one command invocation open until released.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	relOnce sync.Once
}

// Entered is closed once the held call has started.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held call return.
func (g *Gate) Release() { g.relOnce.Do(func() { close(g.release) }) }

// Hold makes the next call of command with argument arg block until the
// returned gate is released or the call's context ends.
func (g *Gateway) Hold(command, arg string) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	g.gates[gateKey(command, arg)] = gate
	return gate
}

// SetError makes every later call of command fail with err (nil clears it).
func (g *Gateway) SetError(command string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.Errors, command)
		return
	}
	g.Errors[command] = err
}

// Calls returns the arguments of every call made to command, in order.
func (g *Gateway) Calls(command string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls[command]))
	copy(out, g.calls[command])
	return out
}

// CallCount returns how many times command was invoked.
func (g *Gateway) CallCount(command string) int {
	return len(g.Calls(command))
}

// Publish broadcasts a task status to every open subscription.
func (g *Gateway) Publish(status backend.TaskStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publishLocked(status)
}

func (g *Gateway) publishLocked(status backend.TaskStatus) {
	for ch := range g.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Subscribers reports the number of open task status subscriptions.
func (g *Gateway) Subscribers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// SubscribeTaskStatus implements backend.Gateway.
func (g *Gateway) SubscribeTaskStatus(ctx context.Context) (*backend.Subscription, error) {
	ch := make(chan backend.TaskStatus, 16)
	g.mu.Lock()
	g.subs[ch] = struct{}{}
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		g.mu.Lock()
		delete(g.subs, ch)
		close(ch)
		g.mu.Unlock()
	}()
	return backend.NewSubscription(ch, cancel), nil
}

// ListImages implements backend.Gateway.
func (g *Gateway) ListImages(ctx context.Context) ([]backend.ImageSummary, error) {
	if err := g.enter(ctx, backend.CommandListImages, ""); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]backend.ImageSummary, len(g.Images))
	copy(out, g.Images)
	return out, nil
}

// RetagImage implements backend.Gateway.
func (g *Gateway) RetagImage(ctx context.Context, imageID string) (string, error) {
	if err := g.enter(ctx, backend.CommandRetagImage, imageID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully tagged image %s as layers:latest", imageID), nil
}

// ExportImageLayers implements backend.Gateway.
func (g *Gateway) ExportImageLayers(ctx context.Context) (*backend.Image, error) {
	if err := g.enter(ctx, backend.CommandExportImageLayers, ""); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Image == nil {
		return nil, &backend.CommandError{Command: backend.CommandExportImageLayers, Message: "No image found with tag layers:latest"}
	}
	return g.Image.Clone(), nil
}

// ExportSingleLayer implements backend.Gateway.
func (g *Gateway) ExportSingleLayer(ctx context.Context, layerID string) ([]backend.Entry, error) {
	if err := g.enter(ctx, backend.CommandExportSingleLayer, layerID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return backend.CloneEntries(g.LayerExports[layerID]), nil
}

// GetLayerFiles implements backend.Gateway.
func (g *Gateway) GetLayerFiles(ctx context.Context, layerID string) ([]backend.Entry, error) {
	if err := g.enter(ctx, backend.CommandGetLayerFiles, layerID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return backend.CloneEntries(g.LayerFiles[layerID]), nil
}

// ExtractDirectory implements backend.Gateway.
func (g *Gateway) ExtractDirectory(ctx context.Context, path, layerID string) ([]backend.Entry, error) {
	if err := g.enter(ctx, backend.CommandExtractDirectory, path); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entries, ok := g.Directories[path]
	if !ok {
		return nil, &backend.CommandError{Command: backend.CommandExtractDirectory, Message: "Directory does not exist: " + path}
	}
	return backend.CloneEntries(entries), nil
}

// ReadLayerFile implements backend.Gateway.
func (g *Gateway) ReadLayerFile(ctx context.Context, path string) (string, error) {
	if err := g.enter(ctx, backend.CommandReadLayerFile, path); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FileErrors[path]; err != nil {
		return "", err
	}
	content, ok := g.Files[path]
	if !ok {
		return "", &backend.CommandError{Command: backend.CommandReadLayerFile, Message: "File does not exist: " + path}
	}
	return content, nil
}

// CompareLayers implements backend.Gateway.
func (g *Gateway) CompareLayers(ctx context.Context, layer1ID, layer2ID string) (*backend.LayerDiff, error) {
	if err := g.enter(ctx, backend.CommandCompareLayers, layer1ID+","+layer2ID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Diff == nil {
		return &backend.LayerDiff{}, nil
	}
	return g.Diff.Clone(), nil
}

// CleanupImages implements backend.Gateway.
func (g *Gateway) CleanupImages(ctx context.Context) (string, error) {
	if err := g.enter(ctx, backend.CommandCleanupImages, ""); err != nil {
		return "", err
	}
	return "Successfully removed all images tagged with 'layers'", nil
}

// enter records the call, publishes scripted progress, waits on a gate
// when one is registered and returns the scripted error for command.
func (g *Gateway) enter(ctx context.Context, command, arg string) error {
	g.mu.Lock()
	g.calls[command] = append(g.calls[command], arg)
	for _, status := range g.Progress[command] {
		g.publishLocked(status)
	}
	gate := g.gates[gateKey(command, arg)]
	if gate != nil {
		delete(g.gates, gateKey(command, arg))
	}
	g.mu.Unlock()

	if gate != nil {
		gate.once.Do(func() { close(gate.entered) })
		select {
		case <-gate.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Errors[command]
}

func gateKey(command, arg string) string {
	return command + "\x00" + arg
}
