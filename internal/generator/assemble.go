package generator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/replace"
	"github.com/yuanying/epubgen/internal/setting"
)

// Placeholders a bound chapter contributes to its document.
const (
	ChapterTitleToken    = "{$chapter.title}"
	ChapterBodyToken     = "{$chapter.body}"
	ChapterFilePathToken = "{$chapter.filePath}"
)

const (
	metaInfDir   = "META-INF"
	resourcesDir = "resources"
	contentsDir  = "contents"
)

// assemble stages the complete package tree in the workspace.
func (p *Pipeline) assemble() error {
	root := p.ws.Path()

	if err := writeStaged(filepath.Join(root, epub.MimetypeName), []byte(epub.MimeType)); err != nil {
		return err
	}
	slog.Info("Created file", logfields.Path("/"+epub.MimetypeName))

	if _, err := p.ws.CreateSubdir(metaInfDir); err != nil {
		return &BuildError{Op: "stage", Path: metaInfDir, Err: err}
	}
	container := filepath.Join(root, filepath.FromSlash(epub.ContainerPath))
	if err := writeStaged(container, epub.ContainerXML(epub.PackagePath)); err != nil {
		return err
	}
	slog.Info("Created file", logfields.Path("/"+epub.ContainerPath))

	oebps, err := p.ws.CreateSubdir(epub.PackageDir)
	if err != nil {
		return &BuildError{Op: "stage", Path: epub.PackageDir, Err: err}
	}
	for _, dir := range []string{resourcesDir, contentsDir} {
		if _, err := p.ws.CreateSubdir(epub.PackageDir + "/" + dir); err != nil {
			return &BuildError{Op: "stage", Path: dir, Err: err}
		}
	}

	if err := p.copyResources(oebps); err != nil {
		return err
	}

	bodies, err := p.loadChapters()
	if err != nil {
		return err
	}

	if err := p.writeDocuments(oebps, bodies); err != nil {
		return err
	}

	if err := p.writePackage(oebps); err != nil {
		return err
	}

	for _, dir := range []string{resourcesDir, contentsDir} {
		if err := removeIfEmpty(filepath.Join(oebps, dir)); err != nil {
			return &BuildError{Op: "stage", Path: dir, Err: err}
		}
	}
	return nil
}

// copyResources copies style sheets and images into OEBPS/resources and
// non-text chapters into OEBPS/contents.
func (p *Pipeline) copyResources(oebps string) error {
	staged := make(map[string]string)
	stage := func(src, dest string) error {
		if prev, ok := staged[dest]; ok {
			return &BuildError{
				Op:   "copy",
				Path: src,
				Err:  fmt.Errorf("%w: %s is also staged from %s", ErrDuplicateDestination, dest, prev),
			}
		}
		staged[dest] = src
		if err := copyFile(src, filepath.Join(oebps, filepath.FromSlash(dest))); err != nil {
			return &BuildError{Op: "copy", Path: src, Err: err}
		}
		slog.Info("Copied resource", logfields.Path("/"+epub.PackageDir+"/"+strings.TrimPrefix(dest, "./")))
		return nil
	}

	for _, css := range p.book.StyleSheets {
		if err := stage(css.Source, css.Destination); err != nil {
			return err
		}
	}
	for _, img := range p.book.Images {
		if err := stage(img.Source, img.Destination); err != nil {
			return err
		}
	}
	for _, ch := range p.book.Chapters {
		if ch.Type.IsText() {
			continue
		}
		if err := stage(ch.Source, ch.Destination); err != nil {
			return err
		}
	}
	return nil
}

// loadChapters reads every text chapter body, applying the chapter-set rules,
// the chapter's own rules and the model line by line.
func (p *Pipeline) loadChapters() (map[int]string, error) {
	bodies := make(map[int]string, len(p.book.Chapters))
	for _, ch := range p.book.Chapters {
		if !ch.Type.IsText() {
			continue
		}
		body, err := readChapter(ch.Source, p.model, p.book.ChapterRules, ch.Rules)
		if err != nil {
			return nil, err
		}
		bodies[ch.Position] = body
		slog.Debug("Loaded chapter", logfields.Chapter(ch.Position), logfields.Path(ch.Source))
	}
	return bodies, nil
}

func readChapter(path string, model map[string]string, scopes ...[]replace.Rule) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &BuildError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	body, err := replace.ApplyLines(f, model, scopes...)
	if err != nil {
		return "", &BuildError{Op: "read", Path: path, Err: err}
	}
	return body, nil
}

// chapterRules returns the rules a bound chapter applies to its document.
func chapterRules(ch setting.Chapter, body string) []replace.Rule {
	return []replace.Rule{
		replace.Simple(ChapterTitleToken, ch.Title),
		replace.Simple(ChapterBodyToken, body),
		replace.Simple(ChapterFilePathToken, ch.Destination),
	}
}

// writeDocuments renders OEBPS/contents_<N>.xhtml for every bound document.
func (p *Pipeline) writeDocuments(oebps string, bodies map[int]string) error {
	templates := make(map[int]string)
	for _, doc := range p.binding.Documents {
		content := p.book.Contents[doc.Content]

		tmpl, ok := templates[doc.Content]
		if !ok {
			data, err := content.Read()
			if err != nil {
				return &BuildError{Op: "read", Path: content.Source, Err: err}
			}
			tmpl = string(data)
			templates[doc.Content] = tmpl
		}

		var rules []replace.Rule
		if doc.Bound() {
			ch := p.book.Chapters[doc.Chapter-1]
			rules = chapterRules(ch, bodies[ch.Position])
		}
		text := replace.ApplyAll(tmpl, p.model, rules, content.Rules)

		if err := writeStaged(filepath.Join(oebps, doc.Name), []byte(text)); err != nil {
			return err
		}
		slog.Info("Created file", logfields.Path("/"+epub.PackageDir+"/"+doc.Name), logfields.Document(doc.Name))
	}
	return nil
}

// writeStaged writes one staged file.
func writeStaged(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &BuildError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// removeIfEmpty removes dir when it holds no entries.
func removeIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(dir)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
