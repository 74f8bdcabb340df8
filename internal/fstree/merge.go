package fstree

import (
	"strings"

	"github.com/five82/layerscope/internal/backend"
)

// Merge folds the result of extracting dir into entries. Every existing
// entry strictly under dir is dropped before fresh is inserted, so nothing
// stale survives beneath the directory. The directory's own entry is kept
// and marked resolved. The result holds each path at most once.
func Merge(entries []backend.Entry, dir string, fresh []backend.Entry) []backend.Entry {
	dir = strings.TrimRight(dir, "/")
	prefix := dir + "/"

	kept := make([]backend.Entry, 0, len(entries)+len(fresh))
	for _, e := range entries {
		if dir != "" && strings.HasPrefix(e.Path, prefix) {
			continue
		}
		if e.Path == dir {
			e = e.Resolved()
		}
		kept = append(kept, e)
	}
	return Union(kept, fresh)
}

// Union combines two entry collections, de-duplicated by path. Entries
// from extra replace same-path entries of base in place, except that an
// unresolved directory never replaces a resolved one: its children are
// already in the collection. New paths are appended in order.
func Union(base, extra []backend.Entry) []backend.Entry {
	out := make([]backend.Entry, 0, len(base)+len(extra))
	pos := make(map[string]int, len(base)+len(extra))
	add := func(e backend.Entry) {
		if i, ok := pos[e.Path]; ok {
			if e.Unresolved() && out[i].IsDir() && !out[i].Unresolved() {
				return
			}
			out[i] = e
			return
		}
		pos[e.Path] = len(out)
		out = append(out, e)
	}
	for _, e := range base {
		add(e)
	}
	for _, e := range extra {
		add(e)
	}
	return backend.CloneEntries(out)
}

// Lookup returns the entry with the given backend path.
func Lookup(entries []backend.Entry, raw string) (backend.Entry, bool) {
	for _, e := range entries {
		if e.Path == raw {
			return e, true
		}
	}
	return backend.Entry{}, false
}
