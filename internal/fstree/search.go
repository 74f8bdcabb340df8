package fstree

import (
	"strings"
)

// Search filters the forest to nodes whose name or path contains query,
// ignoring case. Directories that keep a matching descendant are kept and
// expanded so the match is visible. An empty query returns a copy of the
// forest; a query that matches nothing returns an empty forest.
func Search(forest []*Node, query string) []*Node {
	if query == "" {
		return CloneForest(forest)
	}
	needle := strings.ToLower(query)
	out := []*Node{}
	for _, n := range forest {
		if kept := filter(n, needle); kept != nil {
			out = append(out, kept)
		}
	}
	return out
}

func filter(n *Node, needle string) *Node {
	var children []*Node
	for _, c := range n.Children {
		if kept := filter(c, needle); kept != nil {
			children = append(children, kept)
		}
	}
	self := strings.Contains(strings.ToLower(n.Name), needle) ||
		strings.Contains(strings.ToLower(n.Path), needle)
	if !self && len(children) == 0 {
		return nil
	}

	dup := *n
	dup.Children = children
	if dup.Entry != nil {
		e := *n.Entry
		dup.Entry = &e
	}
	if len(children) > 0 {
		dup.Expanded = true
	}
	return &dup
}
