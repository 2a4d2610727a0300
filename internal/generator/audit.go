package generator

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
)

// MissingReference is a local link in a generated document whose target is
// not part of the package.
type MissingReference struct {
	Document string // package path of the referring document
	Target   string // package path of the missing target
}

// AuditReferences parses every generated document staged under root and
// returns the local references that do not resolve to a staged file.
func AuditReferences(root string, documents []string) ([]MissingReference, error) {
	var missing []MissingReference
	for _, name := range documents {
		docPath := path.Join(epub.PackageDir, name)
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(docPath)))
		if err != nil {
			return nil, err
		}
		content, err := epub.LoadContent(docPath, data)
		if err != nil {
			return nil, err
		}
		for _, ref := range content.References() {
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(ref))); err != nil {
				missing = append(missing, MissingReference{Document: docPath, Target: ref})
			}
		}
	}
	return missing, nil
}

// auditReferences logs unresolved references. It never fails the build.
func (p *Pipeline) auditReferences() {
	names := make([]string, 0, len(p.binding.Documents))
	for _, d := range p.binding.Documents {
		names = append(names, d.Name)
	}

	missing, err := AuditReferences(p.ws.Path(), names)
	if err != nil {
		slog.Warn("Reference audit skipped", logfields.Error(err))
		return
	}
	for _, m := range missing {
		slog.Warn("Reference target not in package",
			logfields.Document(m.Document), logfields.Path(m.Target))
	}
}
