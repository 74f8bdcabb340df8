package backend

import (
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	// EntryTypeFile and EntryTypeDirectory are the wire values of Entry.Type.
	EntryTypeFile      = "file"
	EntryTypeDirectory = "directory"

	// unresolvedSizeMarker is what the backend reports as the size of a
	// directory it stopped scanning at its depth limit.
	unresolvedSizeMarker = "..."

	// TaskStatusEvent is the name of the broadcast event channel.
	TaskStatusEvent = "task_status"
)

// ImageSummary mirrors one row of the available image list.
type ImageSummary struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	Created    string `json:"created"`
	Size       string `json:"size"`
}

// Reference returns repository:tag, or the identifier for untagged images.
func (s ImageSummary) Reference() string {
	repo := strings.TrimSpace(s.Repository)
	tag := strings.TrimSpace(s.Tag)
	if repo == "" || repo == "<none>" {
		return s.ID
	}
	if tag == "" || tag == "<none>" {
		return repo
	}
	return repo + ":" + tag
}

// Image is an exported image with its ordered layers; index 0 is the earliest.
type Image struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Created string  `json:"created"`
	Size    string  `json:"size"`
	Layers  []Layer `json:"layers"`
}

// Layer returns the layer with the given identifier.
func (img *Image) Layer(id string) (Layer, bool) {
	if img == nil {
		return Layer{}, false
	}
	for _, layer := range img.Layers {
		if layer.ID == id {
			return layer, true
		}
	}
	return Layer{}, false
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	dup := *img
	dup.Layers = make([]Layer, len(img.Layers))
	for i, layer := range img.Layers {
		layer.Files = CloneEntries(layer.Files)
		dup.Layers[i] = layer
	}
	return &dup
}

// Layer is one filesystem-changing step of the image build.
type Layer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Command   string  `json:"command"`
	Size      string  `json:"size"`
	CreatedAt string  `json:"createdAt"`
	Files     []Entry `json:"files"`
}

// Entry is one file or directory record discovered by extraction.
type Entry struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Path         string `json:"path"`
	Size         string `json:"size,omitempty"`
	Depth        *int   `json:"depth,omitempty"`
	NeedsLoading bool   `json:"needs_loading,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == EntryTypeDirectory
}

// Unresolved reports whether the directory's children still have to be
// fetched from the backend.
func (e Entry) Unresolved() bool {
	if !e.IsDir() {
		return false
	}
	return e.NeedsLoading || strings.TrimSpace(e.Size) == unresolvedSizeMarker
}

// Bytes parses the human-readable size. Directories and unresolved
// entries have no size.
func (e Entry) Bytes() (uint64, bool) {
	size := strings.TrimSpace(e.Size)
	if size == "" || size == unresolvedSizeMarker {
		return 0, false
	}
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolved returns a copy of the entry with its loading marker cleared.
func (e Entry) Resolved() Entry {
	e.NeedsLoading = false
	if strings.TrimSpace(e.Size) == unresolvedSizeMarker {
		e.Size = ""
	}
	return e
}

// CloneEntries copies a slice of entries including depth hints.
func CloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	dup := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Depth != nil {
			depth := *e.Depth
			e.Depth = &depth
		}
		dup[i] = e
	}
	return dup
}

// TaskStatus describes the single in-flight long-running operation.
type TaskStatus struct {
	Message    string  `json:"message"`
	Progress   float64 `json:"progress"`
	IsComplete bool    `json:"is_complete"`
	Error      string  `json:"error,omitempty"`
}

// Failed reports whether the status carries an error.
func (s TaskStatus) Failed() bool {
	return s.Error != ""
}

// Clamped returns the status with progress limited to [0, 1].
func (s TaskStatus) Clamped() TaskStatus {
	switch {
	case s.Progress < 0:
		s.Progress = 0
	case s.Progress > 1:
		s.Progress = 1
	}
	return s
}

// LayerDiff is the four-way comparison of two layers' filesystems.
type LayerDiff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Unchanged []string `json:"unchanged"`
}

// Clone returns a deep copy of the diff.
func (d *LayerDiff) Clone() *LayerDiff {
	if d == nil {
		return nil
	}
	return &LayerDiff{
		Added:     cloneStrings(d.Added),
		Removed:   cloneStrings(d.Removed),
		Modified:  cloneStrings(d.Modified),
		Unchanged: cloneStrings(d.Unchanged),
	}
}

// Changed reports the number of paths that differ between the layers.
func (d *LayerDiff) Changed() int {
	if d == nil {
		return 0
	}
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
