package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Gateway is the typed command boundary to the layer export/diff backend.
// Implemented by *Client; backendtest.Gateway implements it for tests.
type Gateway interface {
	ListImages(ctx context.Context) ([]ImageSummary, error)
	RetagImage(ctx context.Context, imageID string) (string, error)
	ExportImageLayers(ctx context.Context) (*Image, error)
	ExportSingleLayer(ctx context.Context, layerID string) ([]Entry, error)
	GetLayerFiles(ctx context.Context, layerID string) ([]Entry, error)
	ExtractDirectory(ctx context.Context, path, layerID string) ([]Entry, error)
	ReadLayerFile(ctx context.Context, path string) (string, error)
	CompareLayers(ctx context.Context, layer1ID, layer2ID string) (*LayerDiff, error)
	CleanupImages(ctx context.Context) (string, error)
	SubscribeTaskStatus(ctx context.Context) (*Subscription, error)
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Command names shared by the HTTP transport and error reporting.
const (
	CommandListImages        = "get_docker_images"
	CommandRetagImage        = "retag_image_for_layers"
	CommandExportImageLayers = "export_image_layers"
	CommandExportSingleLayer = "export_single_layer"
	CommandGetLayerFiles     = "get_layer_files"
	CommandExtractDirectory  = "extract_directory"
	CommandReadLayerFile     = "read_layer_file"
	CommandCompareLayers     = "compare_layers"
	CommandCleanupImages     = "cleanup_layers_images"
)

// ErrorKindUnreadable marks file content that cannot be shown as text
// (binary or above the size ceiling).
const ErrorKindUnreadable = "unreadable"

// CommandError is a failure reported by the backend for one command.
type CommandError struct {
	Command string
	Kind    string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Command)
	}
	return e.Message
}

// Unreadable builds the error returned for binary or oversized content.
func Unreadable(message string) error {
	return &CommandError{Command: CommandReadLayerFile, Kind: ErrorKindUnreadable, Message: message}
}

// IsUnreadable reports whether err says the file content cannot be displayed.
func IsUnreadable(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Kind == ErrorKindUnreadable
}

// Subscription is one listener on the task status event channel. Close
// tears it down; C is closed once the subscription ends.
type Subscription struct {
	C <-chan TaskStatus

	once   sync.Once
	cancel func()
}

// NewSubscription wraps an event channel and the function that stops it.
func NewSubscription(ch <-chan TaskStatus, cancel func()) *Subscription {
	return &Subscription{C: ch, cancel: cancel}
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
