// Package generator builds an EPUB file from a setting file: it resolves the
// book, binds chapters to documents, stages the package tree in a workspace
// and packs it into the output archive.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/yuanying/epubgen/internal/binder"
	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/retry"
	"github.com/yuanying/epubgen/internal/setting"
	"github.com/yuanying/epubgen/internal/workspace"
)

// BuildOptions holds options for the build pipeline.
type BuildOptions struct {
	InputPath  string
	OutputPath string

	// WorkDir is the parent of the staging directory (os.TempDir when empty).
	WorkDir string
	// KeepWorkspace leaves the staging directory in place for inspection.
	KeepWorkspace bool
	// CleanupPolicy overrides the workspace removal policy when set.
	CleanupPolicy retry.Policy

	SettingOptions []setting.Option
}

// Pipeline orchestrates one book build. It is not reusable.
type Pipeline struct {
	Options BuildOptions

	book    *setting.Book
	binding *binder.Binding
	model   map[string]string
	ws      *workspace.Manager
}

// NewPipeline creates a new build pipeline.
func NewPipeline(opts BuildOptions) *Pipeline {
	return &Pipeline{Options: opts}
}

// Build executes the pipeline. The staging workspace is removed on every
// path (unless kept), and no output file is left behind on failure.
func (p *Pipeline) Build(ctx context.Context) (err error) {
	if p.Options.OutputPath == "" {
		return errors.New("output path is required")
	}

	slog.Info("Loading setting file", logfields.Stage("resolve"), logfields.Path(p.Options.InputPath))
	book, err := setting.LoadBook(p.Options.InputPath, p.Options.SettingOptions...)
	if err != nil {
		return err
	}
	p.book = book

	binding, err := binder.Bind(book)
	if err != nil {
		return err
	}
	p.binding = binding
	p.model = binder.Model(book, binding)
	for _, key := range sortedKeys(p.model) {
		slog.Debug("Model", slog.String("key", key), slog.String("value", p.model[key]))
	}

	wsOpts := []workspace.Option{workspace.WithKeep(p.Options.KeepWorkspace)}
	if p.Options.CleanupPolicy.MaxAttempts > 0 {
		wsOpts = append(wsOpts, workspace.WithRetryPolicy(p.Options.CleanupPolicy))
	}
	p.ws = workspace.NewManager(p.Options.WorkDir, wsOpts...)
	if err := p.ws.Create(); err != nil {
		return &BuildError{Op: "stage", Err: err}
	}
	defer func() {
		if cerr := p.ws.Cleanup(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	slog.Info("Assembling package", logfields.Stage("assemble"), logfields.Count(len(binding.Documents)))
	if err := p.assemble(); err != nil {
		return err
	}

	p.auditReferences()
	p.probeImages()

	slog.Info("Writing archive", logfields.Stage("archive"), logfields.Path(p.Options.OutputPath))
	if err := writeArchive(p.ws.Path(), p.Options.OutputPath); err != nil {
		return err
	}

	_, hasCover := book.Cover()
	if err := verifyArchive(p.Options.OutputPath, len(binding.Documents), hasCover); err != nil {
		_ = os.Remove(p.Options.OutputPath)
		return fmt.Errorf("written archive failed verification: %w", err)
	}

	slog.Info("Created EPUB", logfields.Path(p.Options.OutputPath))
	return nil
}

// verifyArchive reopens the written archive the way a reading system would.
func verifyArchive(path string, documents int, cover bool) error {
	r, err := epub.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	opf, err := r.Package()
	if err != nil {
		return err
	}
	if nav := opf.ItemsWithProperty(epub.PropertyNav); len(nav) != 1 {
		return fmt.Errorf("expected one nav item, found %d", len(nav))
	}
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if _, ok := r.Files()[item.Href]; !ok {
			return fmt.Errorf("manifest item %s not in archive: %s", id, item.Href)
		}
	}
	if n := len(opf.ItemsWithMediaType("application/xhtml+xml")); n < documents {
		return fmt.Errorf("expected %d content documents, found %d", documents, n)
	}
	if cover && opf.DetectCover() == nil {
		return errors.New("cover image is not marked in the package")
	}
	return nil
}
