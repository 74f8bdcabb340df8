// Package buildfile parses Dockerfiles and explains how each instruction
// affects the image's layers.
package buildfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Instruction is one logical Dockerfile instruction with continuation
// lines joined.
type Instruction struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Args    string `json:"args" yaml:"args"`
	// Line is the 1-based line the instruction starts on.
	Line int `json:"line" yaml:"line"`
}

// Document is a parsed Dockerfile.
type Document struct {
	Name         string        `json:"name" yaml:"name"`
	Instructions []Instruction `json:"instructions" yaml:"instructions"`
	// BaseImage is the argument of the last FROM instruction.
	BaseImage string `json:"base_image,omitempty" yaml:"base_image,omitempty"`
}

// ParseFile reads and parses the Dockerfile at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open build file: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, err
	}
	doc.Name = filepath.Base(path)
	return doc, nil
}

// Parse reads a Dockerfile. Blank lines and comments are skipped,
// backslash continuations are joined with a single space and keywords are
// upper-cased. Lines holding a keyword without arguments are ignored.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var current *Instruction
	var args strings.Builder
	flush := func() {
		if current == nil {
			return
		}
		current.Args = strings.TrimSpace(args.String())
		doc.add(*current)
		current = nil
		args.Reset()
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if current != nil {
			body, more := strings.CutSuffix(line, `\`)
			args.WriteString(strings.TrimSpace(body))
			if more {
				args.WriteByte(' ')
				continue
			}
			flush()
			continue
		}

		keyword, rest, ok := strings.Cut(line, " ")
		if !ok {
			if k, r, tab := strings.Cut(line, "\t"); tab {
				keyword, rest, ok = k, r, true
			}
		}
		rest = strings.TrimSpace(rest)
		if !ok || rest == "" {
			continue
		}

		current = &Instruction{Keyword: strings.ToUpper(keyword), Line: lineNo}
		body, more := strings.CutSuffix(rest, `\`)
		args.WriteString(strings.TrimSpace(body))
		if more {
			args.WriteByte(' ')
			continue
		}
		flush()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read build file: %w", err)
	}
	flush()
	return doc, nil
}

func (d *Document) add(inst Instruction) {
	d.Instructions = append(d.Instructions, inst)
	if inst.Keyword == "FROM" {
		d.BaseImage = inst.Args
	}
}

// Text renders the document back as Dockerfile text, one instruction per
// line.
func (d *Document) Text() string {
	var b strings.Builder
	for _, inst := range d.Instructions {
		b.WriteString(inst.Keyword)
		b.WriteByte(' ')
		b.WriteString(inst.Args)
		b.WriteByte('\n')
	}
	return b.String()
}
