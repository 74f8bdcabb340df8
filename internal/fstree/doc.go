// Package fstree turns the flat entry records reported by the layer backend
// into a sorted, lazily populated filesystem forest.
//
// Backend paths live in a scratch namespace (by default
// /tmp/layers/current_layer/fs). A Normalizer strips that namespace and
// hides the backend's bookkeeping files at the layer root. Build then
// synthesizes missing intermediate directories, attaches each leaf to its
// parent and sorts every level with directories first and names compared
// byte-wise.
//
// Directories the backend did not descend into carry needs_loading. When
// their contents arrive, Merge replaces everything beneath the directory
// so no stale child survives a re-extraction.
//
// Search and FuzzyFind operate on built forests and never mutate them.
package fstree
