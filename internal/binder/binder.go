// Package binder expands content entries into numbered output documents and
// records which document each chapter is merged into.
package binder

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/setting"
)

// InvalidChapterReferenceError reports a useChapters index outside the
// declared chapters.
type InvalidChapterReferenceError struct {
	ContentPath string
	Index       int
	Chapters    int
}

func (e *InvalidChapterReferenceError) Error() string {
	path := e.ContentPath
	if path == "" {
		path = "(built-in)"
	}
	return fmt.Sprintf("content %s references chapter %d, but only %d chapters are declared", path, e.Index, e.Chapters)
}

// Document is one generated OEBPS/contents_<N>.xhtml.
type Document struct {
	Seq        int    // 1-based, global across all contents
	Content    int    // index into Book.Contents
	Chapter    int    // bound chapter position, 0 when unbound
	Navigation bool   // carries the nav property
	Hidden     bool   // left out of the spine
	Name       string // contents_<N>.xhtml
}

// Href returns the document path relative to OEBPS.
func (d Document) Href() string {
	return "./" + d.Name
}

// Bound reports whether the document is generated for a chapter.
func (d Document) Bound() bool {
	return d.Chapter > 0
}

// Binding is the result of Bind.
type Binding struct {
	Documents []Document

	// ChapterDocument maps a chapter position to the Seq of the document it
	// is merged into.
	ChapterDocument map[int]int
}

// DocumentName returns the file name of the n-th generated document.
func DocumentName(n int) string {
	return fmt.Sprintf("contents_%d.xhtml", n)
}

// Bind reserves the generated documents of book in declaration order and
// assigns chapter destinations. Book.Chapters is updated in place.
func Bind(book *setting.Book) (*Binding, error) {
	b := &Binding{ChapterDocument: make(map[int]int)}

	seq := 0
	for ci, content := range book.Contents {
		for _, ref := range content.ChapterRefs {
			if ref < 1 || ref > len(book.Chapters) {
				return nil, &InvalidChapterReferenceError{
					ContentPath: content.Source,
					Index:       ref,
					Chapters:    len(book.Chapters),
				}
			}
		}

		if content.CreateByChaptersCount && len(content.ChapterRefs) > 0 {
			for _, ref := range content.ChapterRefs {
				seq++
				if prev, ok := b.ChapterDocument[ref]; ok {
					slog.Debug("Chapter bound more than once, last binding wins",
						logfields.Chapter(ref), logfields.Document(DocumentName(prev)))
				}
				b.ChapterDocument[ref] = seq
				b.Documents = append(b.Documents, newDocument(seq, ci, ref, content))
			}
			continue
		}

		seq++
		b.Documents = append(b.Documents, newDocument(seq, ci, 0, content))
	}

	for i := range book.Chapters {
		ch := &book.Chapters[i]
		if !ch.Type.IsText() {
			ch.Destination = "./contents/" + filepath.Base(ch.Source)
			continue
		}
		if n, ok := b.ChapterDocument[ch.Position]; ok {
			ch.Destination = "./" + DocumentName(n)
		}
	}

	slog.Debug("Bound contents", logfields.Count(len(b.Documents)))
	return b, nil
}

func newDocument(seq, content, chapter int, c setting.Content) Document {
	return Document{
		Seq:        seq,
		Content:    content,
		Chapter:    chapter,
		Navigation: c.Navigation,
		Hidden:     c.Hidden,
		Name:       DocumentName(seq),
	}
}

// Navigation returns the navigation document.
func (b *Binding) Navigation() (Document, bool) {
	for _, d := range b.Documents {
		if d.Navigation {
			return d, true
		}
	}
	return Document{}, false
}

// Model returns the flattened substitution model of the bound book. The
// contents sequence lists generated documents rather than declared entries,
// so {$setting.contents.N.filePath} names the N-th output document.
func Model(book *setting.Book, b *Binding) map[string]string {
	tree := book.Tree()

	docs := make([]any, 0, len(b.Documents))
	for _, d := range b.Documents {
		entry := setting.ContentTree(book.Contents[d.Content])
		entry["filePath"] = d.Href()
		entry["manifestFilePath"] = d.Href()
		entry["bindChapter"] = d.Bound()
		if d.Bound() {
			entry["bindChapterIndex"] = d.Chapter
		}
		docs = append(docs, entry)
	}
	tree["contents"] = docs

	return setting.Flatten(setting.ModelPrefix, tree)
}
