package fstree

import (
	"path"
	"strings"
)

// Default locations used by the layer backend's scratch directory.
const (
	DefaultNamespace = "/tmp/layers/current_layer/fs"
	DefaultLayerRoot = "/tmp/layers/current_layer"
)

// DefaultReserved lists the backend's bookkeeping files at the layer root.
var DefaultReserved = []string{"layer_info.txt", "command.txt", "fs.tar"}

// Normalizer maps backend entry paths onto logical in-image paths.
type Normalizer struct {
	// Namespace is stripped from every path beneath it.
	Namespace string
	// LayerRoot holds the namespace plus backend bookkeeping files.
	LayerRoot string
	// Reserved names directly under LayerRoot are never shown.
	Reserved []string
}

// DefaultNormalizer returns the contract used by the stock backend.
func DefaultNormalizer() Normalizer {
	reserved := make([]string, len(DefaultReserved))
	copy(reserved, DefaultReserved)
	return Normalizer{
		Namespace: DefaultNamespace,
		LayerRoot: DefaultLayerRoot,
		Reserved:  reserved,
	}
}

// Logical returns the in-image path for a backend path. ok is false for
// paths that must not appear in the tree: the namespace root itself and
// reserved bookkeeping files.
func (n Normalizer) Logical(raw string) (string, bool) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", false
	}
	p = path.Clean("/" + strings.TrimPrefix(p, "/"))

	if rest, ok := under(p, n.Namespace); ok {
		if rest == "/" {
			return "", false
		}
		return rest, true
	}
	if rest, ok := under(p, n.LayerRoot); ok {
		if rest == "/" {
			return "", false
		}
		first := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)[0]
		if n.reserved(first) {
			return "", false
		}
		return rest, true
	}
	if p == "/" {
		return "", false
	}
	return p, true
}

func (n Normalizer) reserved(name string) bool {
	for _, r := range n.Reserved {
		if r == name {
			return true
		}
	}
	return false
}

// under reports whether p lies at or beneath root and returns the
// remainder as an absolute path.
func under(p, root string) (string, bool) {
	root = strings.TrimRight(strings.TrimSpace(root), "/")
	if root == "" {
		return "", false
	}
	if p == root {
		return "/", true
	}
	if strings.HasPrefix(p, root+"/") {
		return p[len(root):], true
	}
	return "", false
}

// Segments splits a logical path into its components.
func Segments(logical string) []string {
	trimmed := strings.Trim(logical, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
