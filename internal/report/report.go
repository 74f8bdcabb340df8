// Package report renders layer comparisons and build file analyses for
// the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/buildfile"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Summary counts the paths in each diff category.
type Summary struct {
	Added     int `json:"added" yaml:"added"`
	Removed   int `json:"removed" yaml:"removed"`
	Modified  int `json:"modified" yaml:"modified"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
}

// Comparison is the serializable form of a layer diff.
type Comparison struct {
	Image     string   `json:"image,omitempty" yaml:"image,omitempty"`
	Layer1    string   `json:"layer1" yaml:"layer1"`
	Layer2    string   `json:"layer2" yaml:"layer2"`
	Summary   Summary  `json:"summary" yaml:"summary"`
	Added     []string `json:"added" yaml:"added"`
	Removed   []string `json:"removed" yaml:"removed"`
	Modified  []string `json:"modified" yaml:"modified"`
	Unchanged []string `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
}

// NewComparison builds the report for diff. Unchanged paths are only
// listed when includeUnchanged is set; they are always counted.
func NewComparison(image, layer1, layer2 string, diff *backend.LayerDiff, includeUnchanged bool) Comparison {
	if diff == nil {
		diff = &backend.LayerDiff{}
	}
	c := Comparison{
		Image:  image,
		Layer1: layer1,
		Layer2: layer2,
		Summary: Summary{
			Added:     len(diff.Added),
			Removed:   len(diff.Removed),
			Modified:  len(diff.Modified),
			Unchanged: len(diff.Unchanged),
		},
		Added:    nonNil(diff.Added),
		Removed:  nonNil(diff.Removed),
		Modified: nonNil(diff.Modified),
	}
	if includeUnchanged {
		c.Unchanged = nonNil(diff.Unchanged)
	}
	return c
}

// WriteComparison renders c in the requested format.
func WriteComparison(w io.Writer, c Comparison, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, c)
	case FormatYAML:
		return writeYAML(w, c)
	default:
		return writeComparisonText(w, c)
	}
}

func writeComparisonText(w io.Writer, c Comparison) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparing %s -> %s", c.Layer1, c.Layer2)
	if c.Image != "" {
		fmt.Fprintf(&b, " (%s)", c.Image)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d added, %d removed, %d modified, %d unchanged\n",
		c.Summary.Added, c.Summary.Removed, c.Summary.Modified, c.Summary.Unchanged)

	section := func(marker string, paths []string) {
		for _, p := range paths {
			fmt.Fprintf(&b, "%s %s\n", marker, p)
		}
	}
	section("+", c.Added)
	section("-", c.Removed)
	section("~", c.Modified)
	section(" ", c.Unchanged)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAnalysis renders a build file analysis.
func WriteAnalysis(w io.Writer, name string, a buildfile.Analysis, format Format) error {
	payload := struct {
		Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
		Analysis buildfile.Analysis `json:"analysis" yaml:"analysis"`
	}{Name: name, Analysis: a}

	switch format {
	case FormatJSON:
		return writeJSON(w, payload)
	case FormatYAML:
		return writeYAML(w, payload)
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s\n", name)
	}
	if a.BaseImage != "" {
		fmt.Fprintf(&b, "Base image: %s\n", a.BaseImage)
	}
	fmt.Fprintf(&b, "Layers created: %d\n", a.NewLayers)
	for _, k := range a.Keywords() {
		fmt.Fprintf(&b, "  %-12s %d\n", k, a.Counts[k])
	}
	if len(a.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range a.Suggestions {
			if s.Line > 0 {
				fmt.Fprintf(&b, "  [line %d] %s: %s\n", s.Line, s.Title, s.Detail)
			} else {
				fmt.Fprintf(&b, "  %s: %s\n", s.Title, s.Detail)
			}
		}
	}
	if len(a.Impacts) > 0 {
		b.WriteString("\nLayer impact:\n")
		for _, im := range a.Impacts {
			fmt.Fprintf(&b, "  %4d %-11s %-9s %s\n", im.Line, im.Keyword, im.Impact, im.Description)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteImages lists image summaries.
func WriteImages(w io.Writer, images []backend.ImageSummary, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, nonNilImages(images))
	case FormatYAML:
		return writeYAML(w, nonNilImages(images))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %-40s %-10s %s\n", "ID", "IMAGE", "SIZE", "CREATED")
	for _, img := range images {
		id := img.ID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(&b, "%-14s %-40s %-10s %s\n", id, img.Reference(), img.Size, img.Created)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilImages(in []backend.ImageSummary) []backend.ImageSummary {
	if in == nil {
		return []backend.ImageSummary{}
	}
	return in
}
