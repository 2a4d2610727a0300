package setting

import (
	"fmt"
	"os"

	"github.com/yuanying/epubgen/internal/replace"
)

// ChapterType is the declared or inferred kind of a chapter file.
type ChapterType string

const (
	// ChapterText chapters are merged into a generated content document.
	ChapterText ChapterType = "text"
	// ChapterImage chapters are copied into the package as-is.
	ChapterImage ChapterType = "image"
)

// IsText reports whether the chapter body is merged into a document.
func (t ChapterType) IsText() bool {
	return t == ChapterText
}

// Author is a creator of the book.
type Author struct {
	Name      string
	Role      string
	CopyRight string
}

// Metadata represents the book level metadata
type Metadata struct {
	BookID       string
	Language     string
	Modified     string // 2006-01-02T15:04:05Z
	Title        string
	Author       Author
	OtherAuthors []Author

	// PageProgressionDirection is written to the spine only when set.
	PageProgressionDirection string
}

// Resource is a style sheet or image copied into OEBPS/resources.
type Resource struct {
	Source      string // absolute path on disk
	Destination string // ./resources/<basename>
	IsCover     bool   // images only
}

// Chapter is one entry of resources.chapters.files.
type Chapter struct {
	Position int // 1-based
	Title    string
	Type     ChapterType
	Source   string

	// Destination is assigned by the binder: the generated document a text
	// chapter is merged into, or ./contents/<basename> otherwise.
	Destination string

	Rules []replace.Rule
}

// Content is a template that expands into one or more generated documents.
type Content struct {
	Source string

	// Template holds the body of a built-in content that has no source file.
	Template string

	Navigation            bool
	UseNavigation         bool // carried through, never consulted
	CreateByChaptersCount bool
	Hidden                bool // excluded from the spine

	Rules       []replace.Rule
	ChapterRefs []int // 1-based chapter positions
}

// Builtin reports whether the content was synthesized rather than declared.
func (c Content) Builtin() bool {
	return c.Source == ""
}

// Read returns the template body.
func (c Content) Read() ([]byte, error) {
	if c.Builtin() {
		return []byte(c.Template), nil
	}
	data, err := os.ReadFile(c.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to read content template: %w", err)
	}
	return data, nil
}

// Book is the canonical model produced by Resolve.
type Book struct {
	Metadata

	StyleSheets  []Resource
	Images       []Resource
	ChapterRules []replace.Rule // applied to every text chapter
	Chapters     []Chapter
	Contents     []Content

	// Extra keeps top-level keys with no canonical meaning so that templates
	// can still reference them as {$setting.<key>}.
	Extra map[string]any
}

// Cover returns the first image flagged as cover.
func (b *Book) Cover() (Resource, bool) {
	for _, img := range b.Images {
		if img.IsCover {
			return img, true
		}
	}
	return Resource{}, false
}

// Navigation returns the index of the navigation content, or -1.
func (b *Book) Navigation() int {
	for i, c := range b.Contents {
		if c.Navigation {
			return i
		}
	}
	return -1
}
