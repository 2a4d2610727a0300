package generator

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yuanying/epubgen/internal/binder"
	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/setting"
)

// writePackage renders OEBPS/book.opf.
func (p *Pipeline) writePackage(oebps string) error {
	pkg := BuildPackage(p.book, p.binding)
	data, err := pkg.Marshal()
	if err != nil {
		return &BuildError{Op: "write", Path: epub.PackagePath, Err: err}
	}
	if err := writeStaged(filepath.Join(oebps, epub.PackageFileName), data); err != nil {
		return err
	}
	slog.Info("Created file", logfields.Path("/"+epub.PackagePath),
		logfields.Count(len(pkg.Manifest)))
	return nil
}

// BuildPackage derives the package document of a bound book: metadata,
// manifest (style sheets, images, non-text chapters, documents) and spine.
func BuildPackage(book *setting.Book, b *binder.Binding) *epub.Package {
	pkg := &epub.Package{
		Metadata:                 packageMetadata(book),
		PageProgressionDirection: book.PageProgressionDirection,
	}

	for i, css := range book.StyleSheets {
		pkg.Manifest = append(pkg.Manifest, manifestItem(fmt.Sprintf("css_%d", i+1), css.Destination))
	}

	coverSet := false
	for i, img := range book.Images {
		item := manifestItem(fmt.Sprintf("image_%d", i+1), img.Destination)
		if img.IsCover && !coverSet {
			item.Properties = []string{epub.PropertyCoverImage}
			pkg.Metadata.CoverID = item.ID
			coverSet = true
		}
		pkg.Manifest = append(pkg.Manifest, item)
	}

	n := 0
	for _, ch := range book.Chapters {
		if ch.Type.IsText() {
			continue
		}
		n++
		pkg.Manifest = append(pkg.Manifest, manifestItem(fmt.Sprintf("chapter_%d", n), ch.Destination))
	}

	for _, doc := range b.Documents {
		id := fmt.Sprintf("content_%d", doc.Seq)
		item := manifestItem(id, doc.Href())
		if doc.Navigation {
			item.Properties = []string{epub.PropertyNav}
		}
		pkg.Manifest = append(pkg.Manifest, item)

		if !doc.Hidden {
			pkg.Spine = append(pkg.Spine, epub.SpineItem{IDRef: id, Linear: true})
		}
	}

	return pkg
}

func manifestItem(id, dest string) epub.ManifestItem {
	href := strings.TrimPrefix(dest, "./")
	return epub.ManifestItem{ID: id, Href: href, MediaType: epub.MediaType(href)}
}

func packageMetadata(book *setting.Book) epub.Metadata {
	md := epub.Metadata{
		Language: book.Language,
		Date:     book.Modified,
		Modified: book.Modified,
		Title:    book.Title,
		Rights:   book.Author.CopyRight,
	}
	if book.BookID != "" {
		md.Identifier = "urn:uuid:" + book.BookID
	}

	if book.Author.Name != "" {
		md.Creators = append(md.Creators, epub.Creator{ID: "creatorMain", Name: book.Author.Name, Role: book.Author.Role})
	}
	n := 0
	for _, a := range book.OtherAuthors {
		if a.Name == "" {
			continue
		}
		n++
		md.Creators = append(md.Creators, epub.Creator{ID: fmt.Sprintf("creator%d", n), Name: a.Name, Role: a.Role})
	}
	return md
}
