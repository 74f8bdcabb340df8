package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/progress"
)

// ListImages refreshes the available image list. A failure is recorded
// for visibility while the previous list is kept.
func (s *Session) ListImages(ctx context.Context) ([]backend.ImageSummary, error) {
	var images []backend.ImageSummary
	err := s.call(backend.CommandListImages, func() (err error) {
		images, err = s.gw.ListImages(ctx)
		return err
	})

	s.mu.Lock()
	s.imagesUpdated = time.Now()
	if err != nil {
		s.imagesErr = err
		s.consecutiveFailures++
		s.mu.Unlock()
		s.notify()
		return nil, fmt.Errorf("list images: %w", err)
	}
	s.images = cloneImages(images)
	s.imagesErr = nil
	s.consecutiveFailures = 0
	s.mu.Unlock()
	s.notify()
	return cloneImages(images), nil
}

// SelectImage replaces the resident image. All layer, entry, file, task
// and comparison state is cleared first. The image is tagged, then its
// layers exported; on success the first layer is selected. A failure at
// either step returns the session to idle without a partial image.
func (s *Session) SelectImage(ctx context.Context, imageID string) error {
	s.mu.Lock()
	s.imageSeq++
	seq := s.imageSeq
	s.cmpSeq++
	s.resetLayerLocked()
	s.image = nil
	s.err = nil
	s.cmp.Reset()
	s.cmpErr = nil
	s.comparing = false
	s.phase = PhaseImageLoading
	if s.budget != nil {
		s.budget.Reset()
	}
	s.mu.Unlock()
	s.reportUsage()

	s.log.Info("selecting image", zap.String("image", imageID))

	op := s.tracker.Begin(ctx, s.gw, "Starting image processing...")
	s.notify()

	err := s.call(backend.CommandRetagImage, func() error {
		_, err := s.gw.RetagImage(ctx, imageID)
		return err
	})
	if err != nil {
		return s.failImage(seq, op, backend.CommandRetagImage, fmt.Errorf("tag image %s: %w", imageID, err))
	}
	if !s.imageCurrent(seq) {
		s.discard(backend.CommandRetagImage, zap.String("image", imageID))
		return nil
	}

	op.Checkpoint("Exporting image layers...", 0.2)

	var img *backend.Image
	err = s.call(backend.CommandExportImageLayers, func() (err error) {
		img, err = s.gw.ExportImageLayers(ctx)
		return err
	})
	if err != nil {
		return s.failImage(seq, op, backend.CommandExportImageLayers, fmt.Errorf("export image %s: %w", imageID, err))
	}

	s.mu.Lock()
	if seq != s.imageSeq {
		s.mu.Unlock()
		s.discard(backend.CommandExportImageLayers, zap.String("image", imageID))
		return nil
	}
	s.image = img.Clone()
	s.phase = PhaseLayersReady
	var first string
	if len(s.image.Layers) > 0 {
		first = s.image.Layers[0].ID
	}
	s.mu.Unlock()

	op.Complete(fmt.Sprintf("Loaded %d layers", len(img.Layers)))
	s.notify()
	s.log.Info("image loaded", zap.String("image", imageID), zap.Int("layers", len(img.Layers)))

	if first == "" {
		return nil
	}
	return s.SelectLayer(ctx, first)
}

func (s *Session) imageCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.imageSeq
}

func (s *Session) failImage(seq uint64, op *progress.Operation, command string, err error) error {
	s.mu.Lock()
	if seq != s.imageSeq {
		s.mu.Unlock()
		s.discard(command)
		return nil
	}
	s.err = err
	s.image = nil
	s.phase = PhaseIdle
	s.mu.Unlock()

	op.Fail("Image processing failed", err)
	s.notify()
	return err
}

// Close releases the backend's working image tag when an image was
// loaded during the session.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.imageSeq > 0
	s.mu.Unlock()

	s.tracker.Reset()
	if !loaded {
		return nil
	}
	return s.call(backend.CommandCleanupImages, func() error {
		_, err := s.gw.CleanupImages(ctx)
		return err
	})
}
