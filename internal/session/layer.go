package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/cache"
	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/metrics"
	"github.com/five82/layerscope/internal/progress"
)

// SelectLayer makes layerID the current layer and loads its entries. In
// comparison mode it toggles the layer's comparison selection instead.
// Responses for a layer that is no longer current are discarded.
func (s *Session) SelectLayer(ctx context.Context, layerID string) error {
	s.mu.Lock()
	if s.image == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	if _, ok := s.image.Layer(layerID); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLayer, layerID)
	}
	if s.cmp.Active() {
		s.mu.Unlock()
		return s.ToggleLayerSelection(layerID)
	}
	s.resetLayerLocked()
	seq := s.layerSeq
	s.currentLayer = layerID
	s.err = nil
	s.phase = PhaseLayerFilesLoading
	s.mu.Unlock()

	op := s.tracker.Begin(ctx, s.gw, fmt.Sprintf("Exporting layer %s...", layerID))
	s.notify()

	var exported []backend.Entry
	err := s.call(backend.CommandExportSingleLayer, func() (err error) {
		exported, err = s.gw.ExportSingleLayer(ctx, layerID)
		return err
	})
	if err != nil {
		return s.failLayer(seq, layerID, op, backend.CommandExportSingleLayer, fmt.Errorf("export layer %s: %w", layerID, err))
	}

	s.mu.Lock()
	if !s.layerCurrentLocked(seq, layerID) {
		s.mu.Unlock()
		s.discard(backend.CommandExportSingleLayer, zap.String("layer", layerID))
		return nil
	}
	s.entries = fstree.Union(s.entries, exported)
	s.recordUsageLocked(cache.Scope{Layer: layerID}, exported)
	s.mu.Unlock()
	s.reportUsage()

	op.Checkpoint("Loading layer files...", 0.8)
	s.notify()

	var files []backend.Entry
	err = s.call(backend.CommandGetLayerFiles, func() (err error) {
		files, err = s.gw.GetLayerFiles(ctx, layerID)
		return err
	})
	if err != nil {
		return s.failLayer(seq, layerID, op, backend.CommandGetLayerFiles, fmt.Errorf("load layer files %s: %w", layerID, err))
	}

	s.mu.Lock()
	if !s.layerCurrentLocked(seq, layerID) {
		s.mu.Unlock()
		s.discard(backend.CommandGetLayerFiles, zap.String("layer", layerID))
		return nil
	}
	s.entries = fstree.Union(s.entries, files)
	s.phase = PhaseLayerFilesReady
	count := len(s.entries)
	s.mu.Unlock()

	metrics.SetTreeEntries(count)
	op.Complete(fmt.Sprintf("Layer %s loaded", layerID))
	s.notify()
	return nil
}

func (s *Session) layerCurrentLocked(seq uint64, layerID string) bool {
	return seq == s.layerSeq && s.currentLayer == layerID
}

func (s *Session) failLayer(seq uint64, layerID string, op *progress.Operation, command string, err error) error {
	s.mu.Lock()
	if !s.layerCurrentLocked(seq, layerID) {
		s.mu.Unlock()
		s.discard(command, zap.String("layer", layerID))
		return nil
	}
	s.err = err
	s.phase = PhaseError
	s.mu.Unlock()

	op.Fail("Layer export failed", err)
	s.notify()
	return err
}

// ExtractDirectory loads the children of an unresolved directory of the
// current layer. path is the entry's backend path. The merged result
// replaces every entry previously known under path.
func (s *Session) ExtractDirectory(ctx context.Context, path string) error {
	s.mu.Lock()
	if s.image == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	entry, ok := fstree.Lookup(s.entries, path)
	if !ok || !entry.Unresolved() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoadable, path)
	}
	if s.pending[path] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExtractionPending, path)
	}
	s.pending[path] = true
	seq := s.layerSeq
	layerID := s.currentLayer
	pending := len(s.pending)
	s.mu.Unlock()

	metrics.SetPendingExtractions(pending)
	op := s.tracker.Begin(ctx, s.gw, fmt.Sprintf("Extracting %s...", entry.Name))
	s.notify()

	var fresh []backend.Entry
	err := s.call(backend.CommandExtractDirectory, func() (err error) {
		fresh, err = s.gw.ExtractDirectory(ctx, path, layerID)
		return err
	})

	s.mu.Lock()
	if !s.layerCurrentLocked(seq, layerID) {
		s.mu.Unlock()
		s.discard(backend.CommandExtractDirectory, zap.String("layer", layerID), zap.String("path", path))
		return nil
	}
	delete(s.pending, path)
	pending = len(s.pending)
	if err != nil {
		err = fmt.Errorf("extract %s: %w", path, err)
		s.err = err
		s.mu.Unlock()
		metrics.SetPendingExtractions(pending)
		op.Fail("Directory extraction failed", err)
		s.notify()
		return err
	}
	s.entries = fstree.Merge(s.entries, path, fresh)
	if logical, ok := s.norm.Logical(path); ok {
		s.expanded[logical] = true
	}
	s.recordUsageLocked(cache.Scope{Layer: layerID, Dir: path}, fresh)
	count := len(s.entries)
	s.mu.Unlock()

	metrics.SetPendingExtractions(pending)
	metrics.SetTreeEntries(count)
	s.reportUsage()
	op.Complete(fmt.Sprintf("Extracted %d entries", len(fresh)))
	s.notify()
	return nil
}

// LoadFileContent selects a file and loads its text. Directories are
// ignored. Binary or oversized files get the backend's explanation as
// content; other failures get an "Error reading file" placeholder.
func (s *Session) LoadFileContent(ctx context.Context, entry backend.Entry) error {
	if entry.IsDir() {
		return nil
	}

	s.mu.Lock()
	s.fileSeq++
	seq := s.fileSeq
	s.selectedFile = entry.Path
	s.fileContent = ""
	s.loadingFile = true
	layerID := s.currentLayer
	s.mu.Unlock()
	s.notify()

	if layerID != "" && s.budget != nil {
		s.budget.Touch(cache.Scope{Layer: layerID})
	}

	var content string
	err := s.call(backend.CommandReadLayerFile, func() (err error) {
		content, err = s.gw.ReadLayerFile(ctx, entry.Path)
		return err
	})

	s.mu.Lock()
	if seq != s.fileSeq || s.selectedFile != entry.Path {
		s.mu.Unlock()
		s.discard(backend.CommandReadLayerFile, zap.String("path", entry.Path))
		return nil
	}
	switch {
	case err == nil:
	case backend.IsUnreadable(err):
		content = err.Error()
		err = nil
	default:
		content = "Error reading file: " + err.Error()
	}
	s.fileContent = content
	s.loadingFile = false
	s.mu.Unlock()
	s.notify()

	if err != nil {
		return fmt.Errorf("read %s: %w", entry.Path, err)
	}
	return nil
}

// Tree projects the current entries into a forest with the session's
// expansion state applied, filtered by query when it is not empty.
func (s *Session) Tree(query string) []*fstree.Node {
	s.mu.Lock()
	entries := backend.CloneEntries(s.entries)
	expanded := cloneSet(s.expanded)
	s.mu.Unlock()

	forest := fstree.Build(entries, s.norm)
	fstree.ApplyExpanded(forest, expanded)
	if query == "" {
		return forest
	}
	return fstree.Search(forest, query)
}

// FindFiles fuzzy-ranks the current layer's files against query.
func (s *Session) FindFiles(query string, limit int) []fstree.Match {
	return fstree.FuzzyFind(s.Tree(""), query, limit)
}

// SetExpanded records whether the directory at logical path is expanded.
func (s *Session) SetExpanded(logical string, expanded bool) {
	s.mu.Lock()
	if expanded {
		s.expanded[logical] = true
	} else {
		delete(s.expanded, logical)
	}
	s.mu.Unlock()
	s.notify()
}
