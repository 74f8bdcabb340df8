package buildfile

import (
	"fmt"
	"sort"
	"strings"
)

// Impact classifies what an instruction does to the layer stack.
type Impact int

const (
	ImpactUnknown Impact = iota
	ImpactNewLayer
	ImpactMetadata
)

func (i Impact) String() string {
	switch i {
	case ImpactNewLayer:
		return "new_layer"
	case ImpactMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// MarshalText lets JSON and YAML reports carry the impact by name.
func (i Impact) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// ImpactOf classifies a keyword.
func ImpactOf(keyword string) Impact {
	switch strings.ToUpper(keyword) {
	case "FROM", "RUN", "COPY", "ADD":
		return ImpactNewLayer
	case "ENV", "LABEL", "WORKDIR", "USER", "EXPOSE", "VOLUME", "ENTRYPOINT", "CMD":
		return ImpactMetadata
	default:
		return ImpactUnknown
	}
}

// LayerImpact explains one instruction.
type LayerImpact struct {
	Line        int    `json:"line" yaml:"line"`
	Keyword     string `json:"keyword" yaml:"keyword"`
	Impact      Impact `json:"impact" yaml:"impact"`
	Description string `json:"description" yaml:"description"`
}

// Suggestion is one optimization hint. Line is zero for file-wide hints.
type Suggestion struct {
	Title  string `json:"title" yaml:"title"`
	Detail string `json:"detail" yaml:"detail"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Analysis is the result of Analyze.
type Analysis struct {
	BaseImage   string         `json:"base_image,omitempty" yaml:"base_image,omitempty"`
	Counts      map[string]int `json:"counts" yaml:"counts"`
	NewLayers   int            `json:"new_layers" yaml:"new_layers"`
	Suggestions []Suggestion   `json:"suggestions" yaml:"suggestions"`
	Impacts     []LayerImpact  `json:"impacts" yaml:"impacts"`
}

// Keywords returns the counted keywords in alphabetical order.
func (a Analysis) Keywords() []string {
	keys := make([]string, 0, len(a.Counts))
	for k := range a.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Analyze explains the layer impact of every instruction and suggests
// ways to shrink or speed up the build.
func Analyze(doc *Document) Analysis {
	a := Analysis{Counts: make(map[string]int)}
	if doc == nil {
		return a
	}
	a.BaseImage = doc.BaseImage

	for _, inst := range doc.Instructions {
		a.Counts[inst.Keyword]++
		impact := ImpactOf(inst.Keyword)
		if impact == ImpactNewLayer {
			a.NewLayers++
		}
		a.Impacts = append(a.Impacts, LayerImpact{
			Line:        inst.Line,
			Keyword:     inst.Keyword,
			Impact:      impact,
			Description: describe(inst, impact),
		})
	}
	a.Suggestions = suggest(doc)
	return a
}

func describe(inst Instruction, impact Impact) string {
	switch {
	case inst.Keyword == "FROM":
		return fmt.Sprintf("Base image: %s. Creates a new base layer.", inst.Args)
	case inst.Keyword == "RUN":
		return fmt.Sprintf("Creates a new layer with changes from: %s", inst.Args)
	case impact == ImpactNewLayer:
		return fmt.Sprintf("Creates a new layer with files: %s", inst.Args)
	case impact == ImpactMetadata:
		return fmt.Sprintf("Metadata change only, no new layer: %s", inst.Args)
	default:
		return fmt.Sprintf("Unknown instruction: %s", inst.Args)
	}
}

func suggest(doc *Document) []Suggestion {
	var out []Suggestion

	runs := 0
	for _, inst := range doc.Instructions {
		if inst.Keyword == "RUN" {
			runs++
		}
	}
	if runs > 1 {
		out = append(out, Suggestion{
			Title:  "Multiple RUN instructions",
			Detail: fmt.Sprintf("Found %d RUN instructions. Consider combining them to reduce layers.", runs),
		})
	}

	for _, inst := range doc.Instructions {
		if inst.Keyword != "RUN" || !strings.Contains(inst.Args, "apt-get install") {
			continue
		}
		if strings.Contains(inst.Args, "apt-get clean") || strings.Contains(inst.Args, "rm -rf /var/lib/apt/lists") {
			continue
		}
		out = append(out, Suggestion{
			Title:  "Missing apt cleanup",
			Detail: "apt-get install without cleanup. Add 'apt-get clean && rm -rf /var/lib/apt/lists/*' to reduce layer size.",
			Line:   inst.Line,
		})
	}

	copied := false
	for _, inst := range doc.Instructions {
		switch inst.Keyword {
		case "COPY", "ADD":
			copied = true
		case "RUN":
			if copied {
				out = append(out, Suggestion{
					Title:  "Dependency caching",
					Detail: "Consider moving COPY commands for application code after installing dependencies to improve build caching.",
					Line:   inst.Line,
				})
				return out
			}
		}
	}
	return out
}
