package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/layerscope/internal/buildfile"
)

// BuildFile is the build file open in the session with its analysis.
type BuildFile struct {
	Path     string
	Name     string
	Content  string
	Doc      *buildfile.Document
	Analysis buildfile.Analysis
	// Dirty is set when Content differs from what is on disk.
	Dirty bool
}

func (b *BuildFile) clone() *BuildFile {
	if b == nil {
		return nil
	}
	dup := *b
	if b.Doc != nil {
		doc := *b.Doc
		doc.Instructions = append([]buildfile.Instruction(nil), b.Doc.Instructions...)
		dup.Doc = &doc
	}
	counts := make(map[string]int, len(b.Analysis.Counts))
	for k, v := range b.Analysis.Counts {
		counts[k] = v
	}
	dup.Analysis.Counts = counts
	dup.Analysis.Impacts = append([]buildfile.LayerImpact(nil), b.Analysis.Impacts...)
	dup.Analysis.Suggestions = append([]buildfile.Suggestion(nil), b.Analysis.Suggestions...)
	return &dup
}

// LoadBuildFile reads, parses and analyzes the build file at path.
func (s *Session) LoadBuildFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read build file: %w", err)
	}
	bf, err := analyzeBuildFile(filepath.Base(path), string(data))
	if err != nil {
		return err
	}
	bf.Path = path

	s.mu.Lock()
	s.build = bf
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetBuildFile replaces the edited build file text and re-analyzes it.
func (s *Session) SetBuildFile(name, content string) error {
	bf, err := analyzeBuildFile(name, content)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.build != nil {
		bf.Path = s.build.Path
		bf.Dirty = s.build.Content != content || s.build.Dirty
	} else {
		bf.Dirty = content != ""
	}
	s.build = bf
	s.mu.Unlock()
	s.notify()
	return nil
}

// SaveBuildFile writes the edited text back to its path.
func (s *Session) SaveBuildFile() error {
	s.mu.Lock()
	bf := s.build.clone()
	s.mu.Unlock()
	if bf == nil || bf.Path == "" {
		return fmt.Errorf("no build file path to save to")
	}
	if err := os.WriteFile(bf.Path, []byte(bf.Content), 0o644); err != nil {
		return fmt.Errorf("write build file: %w", err)
	}

	s.mu.Lock()
	if s.build != nil && s.build.Content == bf.Content {
		s.build.Dirty = false
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func analyzeBuildFile(name, content string) (*BuildFile, error) {
	doc, err := buildfile.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	doc.Name = name
	return &BuildFile{
		Name:     name,
		Content:  content,
		Doc:      doc,
		Analysis: buildfile.Analyze(doc),
	}, nil
}
