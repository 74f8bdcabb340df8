package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
)

// SetComparisonMode turns comparison mode on or off. Either transition
// clears the selection and the last result.
func (s *Session) SetComparisonMode(on bool) {
	s.mu.Lock()
	if s.cmp.Active() != on {
		s.cmp.SetActive(on)
		s.cmpSeq++
		s.cmpErr = nil
		s.comparing = false
	}
	s.mu.Unlock()
	s.notify()
}

// ToggleLayerSelection adds or removes a layer from the comparison
// selection, evicting the oldest selection past two.
func (s *Session) ToggleLayerSelection(layerID string) error {
	s.mu.Lock()
	if s.image == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	if _, ok := s.image.Layer(layerID); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLayer, layerID)
	}
	if err := s.cmp.Toggle(layerID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cmpSeq++
	s.cmpErr = nil
	s.comparing = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// Compare diffs the two selected layers. Without exactly two selected it
// fails with compare.ErrSelectionIncomplete and makes no backend call. A
// backend failure leaves the previous result in place.
func (s *Session) Compare(ctx context.Context) error {
	s.mu.Lock()
	layer1, layer2, err := s.cmp.Pair()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cmpSeq++
	seq := s.cmpSeq
	s.comparing = true
	s.cmpErr = nil
	s.mu.Unlock()

	op := s.tracker.Begin(ctx, s.gw, fmt.Sprintf("Preparing to compare layers %s and %s...", layer1, layer2))
	s.notify()

	var diff *backend.LayerDiff
	err = s.call(backend.CommandCompareLayers, func() (err error) {
		diff, err = s.gw.CompareLayers(ctx, layer1, layer2)
		return err
	})

	s.mu.Lock()
	if seq != s.cmpSeq {
		s.mu.Unlock()
		s.discard(backend.CommandCompareLayers, zap.String("layer1", layer1), zap.String("layer2", layer2))
		return nil
	}
	s.comparing = false
	if err != nil {
		err = fmt.Errorf("compare %s and %s: %w", layer1, layer2, err)
		s.cmpErr = err
		s.mu.Unlock()
		op.Fail("Comparison failed", err)
		s.notify()
		return err
	}
	s.cmp.SetResult(layer1, layer2, diff)
	s.mu.Unlock()

	op.Complete(fmt.Sprintf("Comparison complete: %d changed paths", diff.Changed()))
	s.notify()
	return nil
}
