package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanying/epubgen/internal/setting"
)

func chapters(types ...setting.ChapterType) []setting.Chapter {
	out := make([]setting.Chapter, 0, len(types))
	for i, typ := range types {
		out = append(out, setting.Chapter{
			Position: i + 1,
			Title:    "chapter",
			Type:     typ,
			Source:   "/src/chapter" + string(rune('a'+i)) + ".dat",
		})
	}
	return out
}

func TestBind_OneDocumentPerContent(t *testing.T) {
	book := &setting.Book{
		Contents: []setting.Content{
			{Source: "/src/cover.xhtml"},
			{Source: "/src/nav.xhtml", Navigation: true},
			{Source: "/src/colophon.xhtml"},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)
	require.Len(t, b.Documents, 3)

	for i, d := range b.Documents {
		assert.Equal(t, i+1, d.Seq)
		assert.Equal(t, i, d.Content)
		assert.False(t, d.Bound())
		assert.Equal(t, DocumentName(i+1), d.Name)
	}
	assert.Equal(t, "./contents_2.xhtml", b.Documents[1].Href())
	assert.Empty(t, b.ChapterDocument)

	nav, ok := b.Navigation()
	require.True(t, ok)
	assert.Equal(t, 2, nav.Seq)
}

func TestBind_Replication(t *testing.T) {
	book := &setting.Book{
		Chapters: chapters(setting.ChapterText, setting.ChapterText, setting.ChapterText),
		Contents: []setting.Content{
			{Source: "/src/nav.xhtml", Navigation: true},
			{Source: "/src/chapter.xhtml", CreateByChaptersCount: true, ChapterRefs: []int{3, 1, 2}},
			{Source: "/src/end.xhtml"},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)
	require.Len(t, b.Documents, 5)

	assert.Equal(t, 0, b.Documents[0].Chapter)
	assert.Equal(t, 3, b.Documents[1].Chapter)
	assert.Equal(t, 1, b.Documents[2].Chapter)
	assert.Equal(t, 2, b.Documents[3].Chapter)
	assert.Equal(t, 0, b.Documents[4].Chapter)
	for _, d := range b.Documents[1:4] {
		assert.Equal(t, 1, d.Content)
		assert.False(t, d.Navigation)
	}
	assert.Equal(t, "contents_5.xhtml", b.Documents[4].Name)

	assert.Equal(t, map[int]int{3: 2, 1: 3, 2: 4}, b.ChapterDocument)
	assert.Equal(t, "./contents_3.xhtml", book.Chapters[0].Destination)
	assert.Equal(t, "./contents_4.xhtml", book.Chapters[1].Destination)
	assert.Equal(t, "./contents_2.xhtml", book.Chapters[2].Destination)
}

func TestBind_RefsWithoutReplication(t *testing.T) {
	book := &setting.Book{
		Chapters: chapters(setting.ChapterText),
		Contents: []setting.Content{
			{Source: "/src/a.xhtml", ChapterRefs: []int{1}},
			{Source: "/src/b.xhtml", CreateByChaptersCount: true},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)
	require.Len(t, b.Documents, 2)
	assert.False(t, b.Documents[0].Bound())
	assert.False(t, b.Documents[1].Bound())
	assert.Empty(t, book.Chapters[0].Destination)
}

func TestBind_NonTextChapters(t *testing.T) {
	book := &setting.Book{
		Chapters: chapters(setting.ChapterImage, setting.ChapterText, setting.ChapterImage),
		Contents: []setting.Content{
			{Source: "/src/page.xhtml", CreateByChaptersCount: true, ChapterRefs: []int{1}},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1}, b.ChapterDocument)
	assert.Equal(t, "./contents/chaptera.dat", book.Chapters[0].Destination)
	assert.Empty(t, book.Chapters[1].Destination)
	assert.Equal(t, "./contents/chapterc.dat", book.Chapters[2].Destination)
}

func TestBind_InvalidReference(t *testing.T) {
	for _, idx := range []int{0, 4, 5, -1} {
		book := &setting.Book{
			Chapters: chapters(setting.ChapterText, setting.ChapterText, setting.ChapterText),
			Contents: []setting.Content{
				{Source: "/src/chapter.xhtml", CreateByChaptersCount: true, ChapterRefs: []int{1, idx}},
			},
		}

		b, err := Bind(book)
		assert.Nil(t, b)

		var refErr *InvalidChapterReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, "/src/chapter.xhtml", refErr.ContentPath)
		assert.Equal(t, idx, refErr.Index)
		assert.Contains(t, err.Error(), "/src/chapter.xhtml")
	}
}

func TestBind_SynthesizedNavigationIsLast(t *testing.T) {
	book := &setting.Book{
		Contents: []setting.Content{
			{Source: "/src/a.xhtml"},
			{Template: setting.NavigationTemplate, Navigation: true, Hidden: true},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)
	require.Len(t, b.Documents, 2)
	assert.True(t, b.Documents[1].Hidden)
	assert.True(t, b.Documents[1].Navigation)
	assert.Equal(t, "contents_2.xhtml", b.Documents[1].Name)
}

func TestModel(t *testing.T) {
	book := &setting.Book{
		Metadata: setting.Metadata{Title: "T", Language: "ja"},
		Chapters: chapters(setting.ChapterText, setting.ChapterText),
		Contents: []setting.Content{
			{Source: "/src/chapter.xhtml", CreateByChaptersCount: true, ChapterRefs: []int{1, 2}},
			{Template: setting.NavigationTemplate, Navigation: true, Hidden: true},
		},
	}

	b, err := Bind(book)
	require.NoError(t, err)

	model := Model(book, b)
	assert.Equal(t, "T", model["setting.title"])
	assert.Equal(t, "./contents_1.xhtml", model["setting.contents.1.filePath"])
	assert.Equal(t, "./contents_2.xhtml", model["setting.contents.2.filePath"])
	assert.Equal(t, "./contents_3.xhtml", model["setting.contents.3.filePath"])
	assert.Equal(t, "true", model["setting.contents.1.bindChapter"])
	assert.Equal(t, "2", model["setting.contents.2.bindChapterIndex"])
	assert.Equal(t, "/src/chapter.xhtml", model["setting.contents.2.settingFilePath"])
	assert.Equal(t, "true", model["setting.contents.3.isNavigationContent"])
	assert.Equal(t, "true", model["setting.contents.3.spineHidden"])
	assert.Equal(t, "./contents_2.xhtml", model["setting.resources.chapters.files.2.filePath"])
	_, ok := model["setting.contents.4.filePath"]
	assert.False(t, ok)
}
