package setting

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
	"github.com/yuanying/epubgen/internal/replace"
)

// Defaults applied to missing metadata.
const (
	DefaultLanguage = "ja"
	DefaultTitle    = "無題"
	ModifiedLayout  = "2006-01-02T15:04:05Z"
)

// Option configures Resolve.
type Option func(*resolver)

// WithClock overrides the clock used for the modified default.
func WithClock(now func() time.Time) Option {
	return func(r *resolver) { r.now = now }
}

// WithIDGenerator overrides the bookId default generator.
func WithIDGenerator(newID func() string) Option {
	return func(r *resolver) { r.newID = newID }
}

type resolver struct {
	now   func() time.Time
	newID func() string
}

// canonicalKeys are the top-level keys consumed by Resolve. Everything else
// is kept in Book.Extra.
var canonicalKeys = map[string]bool{
	"bookId": true, "language": true, "modified": true, "title": true,
	"authorName": true, "authorRole": true, "authorCopyRight": true,
	"otherAuthors": true, "pageProgressionDirection": true,
	"resources": true, "contents": true,
}

// Resolve builds the canonical Book from a loaded tree. Relative filePath
// values are resolved against baseDir.
func Resolve(tree any, baseDir string, opts ...Option) (*Book, error) {
	r := &resolver{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	raw, ok := asMap(tree)
	if !ok {
		return nil, &ConfigError{Err: ErrNotMapping}
	}
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	root, _ := RewritePaths(raw, baseDir).(map[string]any)

	book := &Book{Extra: map[string]any{}}
	book.Metadata = r.metadata(root)

	for k, v := range root {
		if !canonicalKeys[k] {
			book.Extra[k] = v
		}
	}

	resources, _ := asMap(root["resources"])

	var err error
	if book.StyleSheets, err = resolveResources(resources["styleSheets"], "styleSheet"); err != nil {
		return nil, err
	}
	if book.Images, err = resolveResources(resources["images"], "image"); err != nil {
		return nil, err
	}

	chapters, _ := asMap(resources["chapters"])
	if book.ChapterRules, err = resolveRules(chapters["replaces"], "resources.chapters.replaces"); err != nil {
		return nil, err
	}
	if book.Chapters, err = resolveChapters(chapters["files"]); err != nil {
		return nil, err
	}

	if book.Contents, err = resolveContents(root["contents"]); err != nil {
		return nil, err
	}

	if err := checkNavigation(book.Contents); err != nil {
		return nil, err
	}
	if book.Navigation() < 0 {
		slog.Warn("No navigation content declared, generating a hidden one")
		book.Contents = append(book.Contents, navigationContent())
	}

	return book, nil
}

func (r *resolver) metadata(root map[string]any) Metadata {
	md := Metadata{
		BookID:                   scalar(root["bookId"]),
		Language:                 scalar(root["language"]),
		Modified:                 modified(root["modified"]),
		Title:                    norm.NFC.String(scalar(root["title"])),
		Author:                   author(root),
		PageProgressionDirection: scalar(root["pageProgressionDirection"]),
	}

	if md.BookID == "" {
		md.BookID = r.newID()
		slog.Warn("bookId not specified, using a random value", slog.String("bookId", md.BookID))
	}
	if md.Language == "" {
		md.Language = DefaultLanguage
		slog.Warn("language not specified, using default", slog.String("language", md.Language))
	} else if _, err := language.Parse(md.Language); err != nil {
		slog.Warn("language is not a valid BCP 47 tag", slog.String("language", md.Language), logfields.Error(err))
	}
	if md.Modified == "" {
		md.Modified = r.now().UTC().Format(ModifiedLayout)
		slog.Warn("modified not specified, using current time", slog.String("modified", md.Modified))
	}
	if md.Title == "" {
		md.Title = DefaultTitle
		slog.Warn("title not specified, using default", slog.String("title", md.Title))
	}

	switch md.PageProgressionDirection {
	case "", "ltr", "rtl", "default":
	default:
		slog.Warn("Unknown pageProgressionDirection", slog.String("pageProgressionDirection", md.PageProgressionDirection))
	}

	md.OtherAuthors = []Author{}
	for _, item := range list(root["otherAuthors"]) {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		md.OtherAuthors = append(md.OtherAuthors, author(m))
	}

	return md
}

func author(m map[string]any) Author {
	return Author{
		Name:      norm.NFC.String(scalar(m["authorName"])),
		Role:      scalar(m["authorRole"]),
		CopyRight: norm.NFC.String(scalar(m["authorCopyRight"])),
	}
}

func modified(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(ModifiedLayout)
	}
	return scalar(v)
}

func resolveResources(v any, kind string) ([]Resource, error) {
	out := []Resource{}
	for _, item := range list(v) {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		src := scalar(m[FilePathKey])
		if err := requireFile(kind, src); err != nil {
			return nil, err
		}
		out = append(out, Resource{
			Source:      src,
			Destination: "./resources/" + filepath.Base(src),
			IsCover:     kind == "image" && boolean(m["isCover"], false),
		})
	}
	return out, nil
}

func resolveChapters(v any) ([]Chapter, error) {
	out := []Chapter{}
	for i, item := range list(v) {
		m, ok := asMap(item)
		if !ok {
			m = map[string]any{}
		}
		pos := i + 1
		src := scalar(m[FilePathKey])
		if err := requireFile("chapter", src); err != nil {
			return nil, err
		}

		typ := ChapterType(scalar(m["fileType"]))
		if typ == "" {
			inferred, err := inferChapterType(src)
			if err != nil {
				return nil, &ConfigError{Field: fmt.Sprintf("resources.chapters.files.%d.fileType", pos), Err: err}
			}
			typ = inferred
			slog.Warn("fileType not specified, inferred from extension",
				logfields.Chapter(pos), logfields.Path(src), slog.String("fileType", string(typ)))
		}

		rules, err := resolveRules(m["replaces"], fmt.Sprintf("resources.chapters.files.%d.replaces", pos))
		if err != nil {
			return nil, err
		}

		out = append(out, Chapter{
			Position: pos,
			Title:    norm.NFC.String(scalar(m["title"])),
			Type:     typ,
			Source:   src,
			Rules:    rules,
		})
	}
	return out, nil
}

func inferChapterType(path string) (ChapterType, error) {
	mt := epub.MediaType(path)
	switch {
	case strings.HasPrefix(mt, "text/"):
		return ChapterText, nil
	case strings.HasPrefix(mt, "image/"):
		return ChapterImage, nil
	default:
		return "", fmt.Errorf("%w: %s has media type %s", ErrUnknownChapterType, filepath.Base(path), mt)
	}
}

// checkNavigation rejects settings that would generate more than one
// navigation document, counting replicated entries once per bound chapter.
func checkNavigation(contents []Content) error {
	seen := 0
	for i, c := range contents {
		if !c.Navigation {
			continue
		}
		n := 1
		if c.CreateByChaptersCount && len(c.ChapterRefs) > 1 {
			n = len(c.ChapterRefs)
		}
		seen += n
		if seen > 1 {
			return &ConfigError{
				Field: fmt.Sprintf("contents.%d.isNavigationContent", i+1),
				Err:   fmt.Errorf("%w: %d navigation documents", ErrMultipleNavigation, seen),
			}
		}
	}
	return nil
}

func resolveContents(v any) ([]Content, error) {
	items := list(v)
	if len(items) == 0 {
		return nil, &NoContentError{}
	}

	out := make([]Content, 0, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			m = map[string]any{}
		}
		pos := i + 1
		src := scalar(m[FilePathKey])
		if err := requireFile("content", src); err != nil {
			return nil, err
		}

		rules, err := resolveRules(m["replaces"], fmt.Sprintf("contents.%d.replaces", pos))
		if err != nil {
			return nil, err
		}

		var refs []int
		for j, ref := range list(m["useChapters"]) {
			rm, ok := asMap(ref)
			if !ok {
				continue
			}
			idx, ok := integer(rm["chapterIndex"])
			if !ok {
				if rm["chapterIndex"] == nil {
					continue
				}
				return nil, &ConfigError{
					Field: fmt.Sprintf("contents.%d.useChapters.%d.chapterIndex", pos, j+1),
					Err:   fmt.Errorf("not an integer: %v", rm["chapterIndex"]),
				}
			}
			refs = append(refs, idx)
		}

		out = append(out, Content{
			Source:                src,
			Navigation:            boolean(m["isNavigationContent"], false),
			UseNavigation:         boolean(m["useNavigationContent"], true),
			CreateByChaptersCount: boolean(m["createByChaptersCount"], false),
			Rules:                 rules,
			ChapterRefs:           refs,
		})
	}
	return out, nil
}

func resolveRules(v any, field string) ([]replace.Rule, error) {
	rules := []replace.Rule{}
	for i, item := range list(v) {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		placeholder := scalar(m["placeHolder"])
		if placeholder == "" {
			slog.Debug("Skipping replace rule without placeHolder", slog.String("field", fmt.Sprintf("%s.%d", field, i+1)))
			continue
		}
		rule, err := replace.New(replace.ParseKind(scalar(m["type"])), placeholder, scalar(m["replaceContent"]))
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("%s.%d.placeHolder", field, i+1), Err: err}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func requireFile(kind, path string) error {
	if path == "" {
		return &MissingResourceError{Kind: kind}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingResourceError{Kind: kind, Path: path}
		}
		return &ConfigError{Err: fmt.Errorf("failed to stat %s file %s: %w", kind, path, err)}
	}
	if info.IsDir() {
		return &MissingResourceError{Kind: kind, Path: path}
	}
	return nil
}
