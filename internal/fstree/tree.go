package fstree

import (
	"sort"
	"strings"

	"github.com/five82/layerscope/internal/backend"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Node is one element of the derived filesystem forest. Identity derives
// from the logical path alone, so rebuilding from the same entries yields
// the same IDs.
type Node struct {
	ID       string
	Name     string
	Path     string
	Kind     Kind
	Children []*Node
	Expanded bool
	// Entry is the backend record the node was built from; nil for
	// directories synthesized from deeper paths.
	Entry *backend.Entry
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n != nil && n.Kind == KindDirectory
}

// NeedsLoading reports whether the directory's children must still be
// extracted from the backend.
func (n *Node) NeedsLoading() bool {
	return n.IsDir() && n.Entry != nil && n.Entry.Unresolved()
}

// Clone deep-copies the node and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	dup := *n
	if n.Entry != nil {
		e := backend.CloneEntries([]backend.Entry{*n.Entry})[0]
		dup.Entry = &e
	}
	dup.Children = CloneForest(n.Children)
	return &dup
}

// CloneForest deep-copies a forest.
func CloneForest(forest []*Node) []*Node {
	if forest == nil {
		return nil
	}
	out := make([]*Node, len(forest))
	for i, n := range forest {
		out[i] = n.Clone()
	}
	return out
}

// NodeID derives a node identifier from its logical path.
func NodeID(logical string) string {
	return "node:" + logical
}

// Build projects a flat entry collection into a sorted forest. Paths are
// mapped through norm; intermediate directories are synthesized once per
// prefix. When two entries share a path the later one wins.
func Build(entries []backend.Entry, norm Normalizer) []*Node {
	index := make(map[string]*Node, len(entries))
	var roots []*Node

	ensure := func(logical, name string, kind Kind) *Node {
		if node, ok := index[logical]; ok {
			return node
		}
		node := &Node{ID: NodeID(logical), Name: name, Path: logical, Kind: kind}
		index[logical] = node
		parent := parentPath(logical)
		if parent == "/" {
			roots = append(roots, node)
		} else if p, ok := index[parent]; ok {
			p.Children = append(p.Children, node)
		}
		return node
	}

	for _, entry := range entries {
		logical, ok := norm.Logical(entry.Path)
		if !ok {
			continue
		}
		segments := Segments(logical)
		if len(segments) == 0 {
			continue
		}
		prefix := ""
		for _, seg := range segments[:len(segments)-1] {
			prefix += "/" + seg
			dir := ensure(prefix, seg, KindDirectory)
			// A path with descendants is a directory whatever an earlier
			// record claimed.
			dir.Kind = KindDirectory
		}

		kind := KindFile
		if entry.IsDir() {
			kind = KindDirectory
		}
		leaf := ensure(logical, segments[len(segments)-1], kind)
		if len(leaf.Children) == 0 {
			leaf.Kind = kind
		}
		e := backend.CloneEntries([]backend.Entry{entry})[0]
		leaf.Entry = &e
	}

	sortForest(roots)
	return roots
}

func parentPath(logical string) string {
	idx := strings.LastIndex(logical, "/")
	if idx <= 0 {
		return "/"
	}
	return logical[:idx]
}

// sortForest orders directories before files, then by name byte-wise,
// recursively.
func sortForest(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.Name < b.Name
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortForest(n.Children)
		}
	}
}

// ApplyExpanded marks every directory whose path is in expanded.
func ApplyExpanded(forest []*Node, expanded map[string]bool) {
	Walk(forest, func(n *Node) bool {
		if n.IsDir() && expanded[n.Path] {
			n.Expanded = true
		}
		return true
	})
}

// Walk visits nodes depth-first in display order. Returning false from
// fn skips the node's children.
func Walk(forest []*Node, fn func(*Node) bool) {
	for _, n := range forest {
		if fn(n) && len(n.Children) > 0 {
			Walk(n.Children, fn)
		}
	}
}

// Find returns the node with the given logical path.
func Find(forest []*Node, logical string) (*Node, bool) {
	var found *Node
	Walk(forest, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Path == logical {
			found = n
			return false
		}
		return strings.HasPrefix(logical, n.Path+"/")
	})
	return found, found != nil
}

// Count returns the number of files and directories in the forest.
func Count(forest []*Node) (files, dirs int) {
	Walk(forest, func(n *Node) bool {
		if n.IsDir() {
			dirs++
		} else {
			files++
		}
		return true
	})
	return files, dirs
}

// Visible flattens the forest into the rows a tree view shows: children
// of collapsed directories are omitted.
func Visible(forest []*Node) []Row {
	var rows []Row
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			rows = append(rows, Row{Node: n, Depth: depth})
			if n.IsDir() && n.Expanded {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
	return rows
}

// Row is one visible line of a flattened tree.
type Row struct {
	Node  *Node
	Depth int
}
