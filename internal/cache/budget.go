// Package cache accounts the disk used by extracted layer data against a
// configured budget.
//
// The backend keeps every extraction in its scratch directory and has no
// eviction command, so Budget only reports: it tracks bytes per extracted
// scope with last access times and names the least recently used scopes
// that would have to go to get back under budget.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/five82/layerscope/internal/backend"
)

// DefaultBudget is used when no budget is configured.
const DefaultBudget = "2GiB"

// Scope identifies one extraction: a whole layer (Dir empty) or one
// directory within it.
type Scope struct {
	Layer string
	Dir   string
}

func (s Scope) String() string {
	if s.Dir == "" {
		return s.Layer
	}
	return s.Layer + ":" + s.Dir
}

type usage struct {
	bytes      uint64
	lastAccess time.Time
}

// Budget tracks extracted bytes per scope.
type Budget struct {
	mu     sync.Mutex
	limit  uint64
	scopes map[Scope]*usage
	now    func() time.Time
}

// ParseBudget parses a human-readable size such as "2GiB" or "500 MB".
// An empty string yields DefaultBudget.
func ParseBudget(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultBudget
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse cache budget %q: %w", s, err)
	}
	return n, nil
}

// New returns a budget with the given byte limit. Zero disables the limit.
func New(limit uint64) *Budget {
	return &Budget{limit: limit, scopes: make(map[Scope]*usage), now: time.Now}
}

// Record replaces the accounted size of scope with the sum of the file
// sizes in entries and marks it used now. It returns the scope's bytes.
func (b *Budget) Record(scope Scope, entries []backend.Entry) uint64 {
	var total uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := e.Bytes(); ok {
			total += n
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scopes[scope] = &usage{bytes: total, lastAccess: b.now()}
	return total
}

// Touch refreshes the last access time of a recorded scope.
func (b *Budget) Touch(scope Scope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u, ok := b.scopes[scope]; ok {
		u.lastAccess = b.now()
	}
}

// Reset forgets every scope.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scopes = make(map[Scope]*usage)
}

// Usage summarizes the budget.
type Usage struct {
	Used  uint64
	Limit uint64
	// Candidates are the least recently used scopes whose removal would
	// bring Used back under Limit, oldest first.
	Candidates []Scope
}

// Over reports whether the used bytes exceed the limit.
func (u Usage) Over() bool {
	return u.Limit > 0 && u.Used > u.Limit
}

func (u Usage) String() string {
	if u.Limit == 0 {
		return humanize.IBytes(u.Used)
	}
	return fmt.Sprintf("%s / %s", humanize.IBytes(u.Used), humanize.IBytes(u.Limit))
}

// Usage reports current consumption.
func (b *Budget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	type entry struct {
		scope Scope
		usage usage
	}
	all := make([]entry, 0, len(b.scopes))
	var used uint64
	for scope, u := range b.scopes {
		used += u.bytes
		all = append(all, entry{scope: scope, usage: *u})
	}
	out := Usage{Used: used, Limit: b.limit}
	if !out.Over() {
		return out
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].usage.lastAccess.Equal(all[j].usage.lastAccess) {
			return all[i].usage.lastAccess.Before(all[j].usage.lastAccess)
		}
		return all[i].scope.String() < all[j].scope.String()
	})
	remaining := used
	for _, e := range all {
		if remaining <= b.limit {
			break
		}
		out.Candidates = append(out.Candidates, e.scope)
		remaining -= e.usage.bytes
	}
	return out
}
