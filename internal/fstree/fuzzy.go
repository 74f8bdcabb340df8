package fstree

import (
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initScheme sync.Once

// Match is one ranked fuzzy hit.
type Match struct {
	Node  *Node
	Score int
	// Start and End bound the matched span within Node.Path.
	Start int
	End   int
}

// FuzzyFind ranks the file nodes of the forest against query using fzf's
// path scoring scheme. At most limit matches are returned (all when limit
// is zero or negative). Ties keep shorter paths first, then path order.
func FuzzyFind(forest []*Node, query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	initScheme.Do(func() { algo.Init("path") })

	pattern := []rune(strings.ToLower(query))
	slab := util.MakeSlab(100*1024, 2048)

	var matches []Match
	Walk(forest, func(n *Node) bool {
		if n.IsDir() {
			return true
		}
		chars := util.ToChars([]byte(n.Path))
		res, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
		if res.Start >= 0 && res.Score > 0 {
			matches = append(matches, Match{Node: n, Score: res.Score, Start: res.Start, End: res.End})
		}
		return true
	})

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Node.Path) != len(b.Node.Path) {
			return len(a.Node.Path) < len(b.Node.Path)
		}
		return a.Node.Path < b.Node.Path
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
