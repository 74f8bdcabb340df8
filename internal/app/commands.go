package app

import (
	"context"
	"fmt"
	"io"

	"github.com/five82/layerscope/internal/buildfile"
	"github.com/five82/layerscope/internal/report"
	"github.com/five82/layerscope/internal/session"
)

// DiffOptions select the layers to compare.
type DiffOptions struct {
	ImageID          string
	Layer1           string
	Layer2           string
	Format           report.Format
	IncludeUnchanged bool
}

// Images prints the backend's image list.
func Images(ctx context.Context, opts Options, format report.Format, w io.Writer) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	if err := waitForBackend(ctx, e.client, startupAttempts, e.cfg.PollInterval); err != nil {
		return err
	}
	return listImages(ctx, e.session, format, w)
}

func listImages(ctx context.Context, lister ImageLister, format report.Format, w io.Writer) error {
	images, err := lister.ListImages(ctx)
	if err != nil {
		return err
	}
	return report.WriteImages(w, images, format)
}

// Diff loads an image, compares two of its layers and prints the result.
func Diff(ctx context.Context, opts Options, diff DiffOptions, w io.Writer) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	if err := waitForBackend(ctx, e.client, startupAttempts, e.cfg.PollInterval); err != nil {
		return err
	}
	return diffLayers(ctx, e.session, diff, w)
}

func diffLayers(ctx context.Context, sess *session.Session, opts DiffOptions, w io.Writer) error {
	if opts.ImageID == "" || opts.Layer1 == "" || opts.Layer2 == "" {
		return fmt.Errorf("diff needs an image and two layers")
	}
	if opts.Layer1 == opts.Layer2 {
		return fmt.Errorf("diff needs two different layers, got %s twice", opts.Layer1)
	}
	if err := sess.SelectImage(ctx, opts.ImageID); err != nil {
		return err
	}

	sess.SetComparisonMode(true)
	for _, id := range []string{opts.Layer1, opts.Layer2} {
		if err := sess.ToggleLayerSelection(id); err != nil {
			return err
		}
	}
	if err := sess.Compare(ctx); err != nil {
		return err
	}

	snap := sess.Snapshot()
	name := opts.ImageID
	if snap.Image != nil && snap.Image.Name != "" {
		name = snap.Image.Name
	}
	cmp := report.NewComparison(name, opts.Layer1, opts.Layer2, snap.Comparison.Result, opts.IncludeUnchanged)
	return report.WriteComparison(w, cmp, opts.Format)
}

// Analyze parses a build file and prints its layer analysis. It needs no
// backend.
func Analyze(path string, format report.Format, w io.Writer) error {
	doc, err := buildfile.ParseFile(path)
	if err != nil {
		return err
	}
	return report.WriteAnalysis(w, doc.Name, buildfile.Analyze(doc), format)
}
