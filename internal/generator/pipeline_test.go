package generator

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yuanying/epubgen/internal/binder"
	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/retry"
	"github.com/yuanying/epubgen/internal/setting"
)

const sampleNav = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
	<title>サンプル</title>
</head>
<body>
	<nav epub:type="toc"><p>サンプルコンテンツ</p></nav>
</body>
</html>
`

// writeFixture writes files (slash-separated names) under dir.
func writeFixture(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

type testBuild struct {
	input   string
	output  string
	workDir string
}

func newTestBuild(t *testing.T, files map[string]string) testBuild {
	t.Helper()
	src := t.TempDir()
	writeFixture(t, src, files)
	return testBuild{
		input:   filepath.Join(src, "book.yaml"),
		output:  filepath.Join(t.TempDir(), "book.epub"),
		workDir: t.TempDir(),
	}
}

func (b testBuild) run(t *testing.T, keep bool) error {
	t.Helper()
	p := NewPipeline(BuildOptions{
		InputPath:     b.input,
		OutputPath:    b.output,
		WorkDir:       b.workDir,
		KeepWorkspace: keep,
		CleanupPolicy: retry.NewPolicy(1, time.Millisecond),
		SettingOptions: []setting.Option{
			setting.WithClock(func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }),
			setting.WithIDGenerator(func() string { return "00000000-0000-0000-0000-000000000001" }),
		},
	})
	return p.Build(context.Background())
}

func (b testBuild) open(t *testing.T) (*epub.Reader, *epub.OPF) {
	t.Helper()
	r, err := epub.Open(b.output)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", b.output, err)
	}
	t.Cleanup(func() { r.Close() })
	opf, err := r.Package()
	if err != nil {
		t.Fatalf("Package() failed: %v", err)
	}
	return r, opf
}

func (b testBuild) assertNoLeftovers(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(b.output); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output %s should not exist, stat err = %v", b.output, err)
	}
	b.assertWorkDirEmpty(t)
}

func (b testBuild) assertWorkDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(b.workDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging directory left behind: %v", entries)
	}
}

func spineIDs(opf *epub.OPF) []string {
	ids := make([]string, 0, len(opf.Spine))
	for _, s := range opf.Spine {
		ids = append(ids, s.IDRef)
	}
	return ids
}

func TestBuild_SampleContent(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml":  "title: サンプル\ncontents:\n  - filePath: .\\test.xhtml\n    isNavigationContent: true\n",
		"test.xhtml": sampleNav,
	})
	if err := b.run(t, false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r, opf := b.open(t)
	names := r.Names()
	if names[0] != epub.MimetypeName {
		t.Fatalf("first entry = %q, want mimetype", names[0])
	}
	if m := r.Files()[epub.MimetypeName].Method; m != zip.Store {
		t.Errorf("mimetype method = %d, want Store", m)
	}
	for _, name := range names[1:] {
		if strings.Contains(name, `\`) {
			t.Errorf("entry %q uses backslashes", name)
		}
		if m := r.Files()[name].Method; m != zip.Deflate {
			t.Errorf("%s method = %d, want Deflate", name, m)
		}
	}

	if len(opf.ManifestOrder) != 1 {
		t.Fatalf("manifest = %v, want one item", opf.ManifestOrder)
	}
	item := opf.Manifest["content_1"]
	if item.Href != "OEBPS/contents_1.xhtml" || !item.HasProperty(epub.PropertyNav) {
		t.Errorf("manifest item = %+v", item)
	}
	if item.MediaType != "application/xhtml+xml" {
		t.Errorf("media type = %q", item.MediaType)
	}
	if got := spineIDs(opf); len(got) != 1 || got[0] != "content_1" {
		t.Errorf("spine = %v", got)
	}
	if opf.PageProgressionDirection != "" {
		t.Errorf("page-progression-direction = %q, want unset", opf.PageProgressionDirection)
	}

	md := opf.Metadata
	if md.Title != "サンプル" || md.Language != "ja" {
		t.Errorf("metadata = %+v", md)
	}
	if md.Identifier != "urn:uuid:00000000-0000-0000-0000-000000000001" {
		t.Errorf("identifier = %q", md.Identifier)
	}
	if md.Modified != "2024-05-06T07:08:09Z" || md.Date != md.Modified {
		t.Errorf("modified = %q, date = %q", md.Modified, md.Date)
	}

	data, err := r.ReadFile("OEBPS/contents_1.xhtml")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "サンプルコンテンツ") {
		t.Errorf("document body lost:\n%s", data)
	}
	b.assertWorkDirEmpty(t)
}

func TestBuild_SynthesizedNavigation(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": "title: Book\ncontents:\n  - filePath: a.xhtml\n  - filePath: b.xhtml\n",
		"a.xhtml":   "<html><body><p>{$setting.title}</p></body></html>",
		"b.xhtml":   "<html><body><p>b</p></body></html>",
	})
	if err := b.run(t, false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r, opf := b.open(t)
	nav := opf.ItemsWithProperty(epub.PropertyNav)
	if len(nav) != 1 || nav[0].ID != "content_3" {
		t.Fatalf("nav items = %+v, want content_3 only", nav)
	}
	if got := strings.Join(spineIDs(opf), ","); got != "content_1,content_2" {
		t.Errorf("spine = %s, navigation document must be hidden", got)
	}

	navDoc, err := r.ReadFile("OEBPS/contents_3.xhtml")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(navDoc), `href="./contents_1.xhtml"`) {
		t.Errorf("navigation does not link the first document:\n%s", navDoc)
	}
	first, _ := r.ReadFile("OEBPS/contents_1.xhtml")
	if !strings.Contains(string(first), "<p>Book</p>") {
		t.Errorf("model token not substituted:\n%s", first)
	}
}

func TestBuild_DocumentsInDeclarationOrder(t *testing.T) {
	files := map[string]string{"nav.xhtml": sampleNav}
	yaml := "contents:\n  - filePath: nav.xhtml\n    isNavigationContent: true\n"
	for _, name := range []string{"c1", "c2", "c3", "c4"} {
		files[name+".xhtml"] = "<p>" + name + "</p>"
		yaml += "  - filePath: " + name + ".xhtml\n"
	}
	files["book.yaml"] = yaml

	b := newTestBuild(t, files)
	if err := b.run(t, false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r, opf := b.open(t)
	if len(opf.ManifestOrder) != 5 {
		t.Fatalf("manifest = %v", opf.ManifestOrder)
	}
	for i, name := range []string{"nav", "c1", "c2", "c3", "c4"} {
		doc := binder.DocumentName(i + 1)
		data, err := r.ReadFile("OEBPS/" + doc)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", doc, err)
		}
		if name != "nav" && string(data) != "<p>"+name+"</p>" {
			t.Errorf("%s = %q, want %s", doc, data, name)
		}
	}
}

func TestBuild_ChapterReplication(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": `title: Book
resources:
  chapters:
    replaces:
      - type: regex
        placeHolder: '^# (\w+)'
        replaceContent: '<h2>\1</h2>'
    files:
      - title: One
        filePath: ch1.txt
      - title: Two
        filePath: ch2.txt
        replaces:
          - placeHolder: '---'
            replaceContent: '<hr/>'
      - title: Three
        filePath: ch3.txt
contents:
  - filePath: nav.xhtml
    isNavigationContent: true
  - filePath: chapter.xhtml
    createByChaptersCount: true
    replaces:
      - placeHolder: '[[LANG]]'
        replaceContent: '{$setting.language}'
    useChapters:
      - chapterIndex: 3
      - chapterIndex: 1
      - chapterIndex: 2
`,
		"nav.xhtml":     sampleNav,
		"chapter.xhtml": "<title>{$chapter.title}</title><body lang=\"[[LANG]]\">{$chapter.body}</body><!-- {$chapter.filePath} -->",
		"ch1.txt":       "# first\nbody of {$setting.title}\n",
		"ch2.txt":       "second\n---\n",
		"ch3.txt":       "third",
	})
	if err := b.run(t, false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r, opf := b.open(t)
	if got := strings.Join(spineIDs(opf), ","); got != "content_1,content_2,content_3,content_4" {
		t.Errorf("spine = %s", got)
	}

	tests := map[string]string{
		"OEBPS/contents_2.xhtml": "<title>Three</title><body lang=\"ja\">third\n</body><!-- ./contents_2.xhtml -->",
		"OEBPS/contents_3.xhtml": "<title>One</title><body lang=\"ja\"><h2>first</h2>\nbody of Book\n</body><!-- ./contents_3.xhtml -->",
		"OEBPS/contents_4.xhtml": "<title>Two</title><body lang=\"ja\">second\n<hr/>\n</body><!-- ./contents_4.xhtml -->",
	}
	for name, want := range tests {
		data, err := r.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s =\n%s\nwant\n%s", name, data, want)
		}
	}
}

func TestBuild_ResourcesAndCover(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": `bookId: 11111111-2222-3333-4444-555555555555
title: Book
authorName: 作者
authorRole: aut
authorCopyRight: (c) 作者
otherAuthors:
  - authorName: 絵師
    authorRole: ill
  - authorName: ''
  - authorName: 編集
pageProgressionDirection: rtl
resources:
  styleSheets:
    - filePath: style/book.css
  images:
    - filePath: img/back.svg
    - filePath: img/cover.png
      isCover: true
    - filePath: img/alt.png
      isCover: true
  chapters:
    files:
      - title: Picture
        filePath: pages/picture.png
      - title: Text
        filePath: pages/text.txt
contents:
  - filePath: nav.xhtml
    isNavigationContent: true
  - filePath: page.xhtml
    createByChaptersCount: true
    useChapters:
      - chapterIndex: 1
`,
		"style/book.css": "p { margin: 0; }",
		"img/back.svg":   `<svg xmlns="http://www.w3.org/2000/svg"/>`,
		"nav.xhtml":      sampleNav,
		"page.xhtml":     `<html><body><img src="{$chapter.filePath}"/></body></html>`,
		"pages/text.txt": "unused",
	})
	src := filepath.Dir(b.input)
	writePNG(t, filepath.Join(src, "img", "cover.png"), 4, 3)
	writePNG(t, filepath.Join(src, "img", "alt.png"), 2, 2)
	writePNG(t, filepath.Join(src, "pages", "picture.png"), 2, 2)

	if err := b.run(t, false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r, opf := b.open(t)
	wantManifest := []struct {
		id, href, mediaType string
	}{
		{"css_1", "OEBPS/resources/book.css", "text/css"},
		{"image_1", "OEBPS/resources/back.svg", "image/svg+xml"},
		{"image_2", "OEBPS/resources/cover.png", "image/png"},
		{"image_3", "OEBPS/resources/alt.png", "image/png"},
		{"chapter_1", "OEBPS/contents/picture.png", "image/png"},
		{"content_1", "OEBPS/contents_1.xhtml", "application/xhtml+xml"},
		{"content_2", "OEBPS/contents_2.xhtml", "application/xhtml+xml"},
	}
	if len(opf.ManifestOrder) != len(wantManifest) {
		t.Fatalf("manifest = %v", opf.ManifestOrder)
	}
	for i, want := range wantManifest {
		got := opf.Manifest[opf.ManifestOrder[i]]
		if got.ID != want.id || got.Href != want.href || got.MediaType != want.mediaType {
			t.Errorf("manifest[%d] = %+v, want %+v", i, got, want)
		}
		if _, ok := r.Files()[got.Href]; !ok {
			t.Errorf("%s not in archive", got.Href)
		}
	}

	covers := opf.ItemsWithProperty(epub.PropertyCoverImage)
	if len(covers) != 1 || covers[0].ID != "image_2" {
		t.Errorf("cover items = %+v, want image_2 only", covers)
	}
	if opf.Metadata.CoverID != "image_2" {
		t.Errorf("cover meta = %q", opf.Metadata.CoverID)
	}
	if opf.PageProgressionDirection != "rtl" {
		t.Errorf("page-progression-direction = %q", opf.PageProgressionDirection)
	}

	md := opf.Metadata
	if md.Identifier != "urn:uuid:11111111-2222-3333-4444-555555555555" || md.Rights != "(c) 作者" {
		t.Errorf("metadata = %+v", md)
	}
	wantCreators := []epub.Creator{
		{ID: "creatorMain", Name: "作者", Role: "aut"},
		{ID: "creator1", Name: "絵師", Role: "ill"},
		{ID: "creator2", Name: "編集"},
	}
	if len(md.Creators) != len(wantCreators) {
		t.Fatalf("creators = %+v", md.Creators)
	}
	for i, want := range wantCreators {
		if md.Creators[i] != want {
			t.Errorf("creator[%d] = %+v, want %+v", i, md.Creators[i], want)
		}
	}

	page, _ := r.ReadFile("OEBPS/contents_2.xhtml")
	if !strings.Contains(string(page), `src="./contents/picture.png"`) {
		t.Errorf("bound image chapter path not substituted:\n%s", page)
	}
}

func TestBuild_RemovesEmptyDirectories(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": "contents:\n  - filePath: nav.xhtml\n    isNavigationContent: true\n",
		"nav.xhtml": sampleNav,
	})
	if err := b.run(t, true); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	entries, err := os.ReadDir(b.workDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("kept workspace entries = %v, err = %v", entries, err)
	}
	oebps := filepath.Join(b.workDir, entries[0].Name(), epub.PackageDir)
	for _, dir := range []string{resourcesDir, contentsDir} {
		if _, err := os.Stat(filepath.Join(oebps, dir)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("empty %s directory should be removed, stat err = %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(oebps, epub.PackageFileName)); err != nil {
		t.Errorf("book.opf missing from kept workspace: %v", err)
	}
}

func TestBuild_InvalidChapterReference(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": `resources:
  chapters:
    files:
      - filePath: ch1.txt
      - filePath: ch2.txt
      - filePath: ch3.txt
contents:
  - filePath: page.xhtml
    createByChaptersCount: true
    useChapters:
      - chapterIndex: 1
      - chapterIndex: 4
`,
		"page.xhtml": "{$chapter.body}",
		"ch1.txt":    "1",
		"ch2.txt":    "2",
		"ch3.txt":    "3",
	})
	err := b.run(t, false)

	var refErr *binder.InvalidChapterReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("Build error = %v, want InvalidChapterReferenceError", err)
	}
	if refErr.Index != 4 || refErr.Chapters != 3 {
		t.Errorf("error = %+v", refErr)
	}
	b.assertNoLeftovers(t)
}

func TestBuild_InputErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"missing setting file", map[string]string{}},
		{"empty setting file", map[string]string{"book.yaml": ""}},
		{"no contents", map[string]string{"book.yaml": "title: Book\n"}},
		{"missing content file", map[string]string{"book.yaml": "contents:\n  - filePath: nope.xhtml\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuild(t, tt.files)
			err := b.run(t, false)
			if err == nil {
				t.Fatal("Build should fail")
			}
			var cfgErr *setting.ConfigError
			var missErr *setting.MissingResourceError
			var noContent *setting.NoContentError
			if !errors.As(err, &cfgErr) && !errors.As(err, &missErr) && !errors.As(err, &noContent) {
				t.Errorf("Build error = %T %v, want a setting error", err, err)
			}
			b.assertNoLeftovers(t)
		})
	}
}

func TestBuild_InvalidChapterEncoding(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": `resources:
  chapters:
    files:
      - filePath: ch1.txt
contents:
  - filePath: page.xhtml
    createByChaptersCount: true
    useChapters:
      - chapterIndex: 1
`,
		"page.xhtml": "{$chapter.body}",
		"ch1.txt":    "ok\n\xff\xfe\n",
	})
	err := b.run(t, false)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) || buildErr.Op != "read" {
		t.Fatalf("Build error = %v, want read BuildError", err)
	}
	b.assertNoLeftovers(t)
}

func TestBuild_DuplicateDestination(t *testing.T) {
	b := newTestBuild(t, map[string]string{
		"book.yaml": `resources:
  styleSheets:
    - filePath: a/book.css
    - filePath: b/book.css
contents:
  - filePath: nav.xhtml
    isNavigationContent: true
`,
		"a/book.css": "a{}",
		"b/book.css": "b{}",
		"nav.xhtml":  sampleNav,
	})
	err := b.run(t, false)
	if !errors.Is(err, ErrDuplicateDestination) {
		t.Fatalf("Build error = %v, want ErrDuplicateDestination", err)
	}
	b.assertNoLeftovers(t)
}

func TestBuild_RequiresOutputPath(t *testing.T) {
	p := NewPipeline(BuildOptions{InputPath: "book.yaml"})
	if err := p.Build(context.Background()); err == nil {
		t.Fatal("Build without output path should fail")
	}
}
