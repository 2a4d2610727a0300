package setting

import (
	"strconv"

	"github.com/yuanying/epubgen/internal/replace"
)

// ModelPrefix is the root of every flattened model key.
const ModelPrefix = "setting"

// Tree returns the canonical tree of the book, keyed like the setting file.
// Resource and chapter filePath values are package-relative destinations;
// the original absolute paths are kept under settingFilePath.
func (b *Book) Tree() map[string]any {
	tree := make(map[string]any, len(b.Extra)+11)
	for k, v := range b.Extra {
		tree[k] = v
	}

	tree["bookId"] = b.BookID
	tree["language"] = b.Language
	tree["modified"] = b.Modified
	tree["title"] = b.Title
	tree["authorName"] = b.Author.Name
	tree["authorRole"] = b.Author.Role
	tree["authorCopyRight"] = b.Author.CopyRight
	tree["pageProgressionDirection"] = b.PageProgressionDirection

	others := make([]any, 0, len(b.OtherAuthors))
	for _, a := range b.OtherAuthors {
		others = append(others, map[string]any{
			"authorName":      a.Name,
			"authorRole":      a.Role,
			"authorCopyRight": a.CopyRight,
		})
	}
	tree["otherAuthors"] = others

	chapters := make([]any, 0, len(b.Chapters))
	for _, c := range b.Chapters {
		chapters = append(chapters, map[string]any{
			"title":            c.Title,
			"fileType":         string(c.Type),
			"filePath":         c.Destination,
			"manifestFilePath": c.Destination,
			"settingFilePath":  c.Source,
			"replaces":         RuleTree(c.Rules),
		})
	}

	tree["resources"] = map[string]any{
		"styleSheets": resourceTree(b.StyleSheets, false),
		"images":      resourceTree(b.Images, true),
		"chapters": map[string]any{
			"replaces": RuleTree(b.ChapterRules),
			"files":    chapters,
		},
	}

	contents := make([]any, 0, len(b.Contents))
	for _, c := range b.Contents {
		contents = append(contents, ContentTree(c))
	}
	tree["contents"] = contents

	return tree
}

// ContentTree returns the declared fields of a content entry.
func ContentTree(c Content) map[string]any {
	refs := make([]any, 0, len(c.ChapterRefs))
	for _, idx := range c.ChapterRefs {
		refs = append(refs, map[string]any{"chapterIndex": idx})
	}
	return map[string]any{
		"settingFilePath":       c.Source,
		"isNavigationContent":   c.Navigation,
		"useNavigationContent":  c.UseNavigation,
		"createByChaptersCount": c.CreateByChaptersCount,
		"spineHidden":           c.Hidden,
		"useChapters":           refs,
		"replaces":              RuleTree(c.Rules),
	}
}

// RuleTree returns rules in their setting file shape.
func RuleTree(rules []replace.Rule) []any {
	out := make([]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, map[string]any{
			"type":           r.Kind().String(),
			"placeHolder":    r.Placeholder(),
			"replaceContent": r.Replacement(),
		})
	}
	return out
}

func resourceTree(resources []Resource, images bool) []any {
	out := make([]any, 0, len(resources))
	for _, r := range resources {
		m := map[string]any{
			"filePath":         r.Destination,
			"manifestFilePath": r.Destination,
			"settingFilePath":  r.Source,
		}
		if images {
			m["isCover"] = r.IsCover
		}
		out = append(out, m)
	}
	return out
}

// Flatten indexes every scalar of tree by its dotted path below prefix.
// Sequence elements use 1-based indices, so the first content's filePath
// is found at "setting.contents.1.filePath".
func Flatten(prefix string, tree map[string]any) map[string]string {
	out := make(map[string]string)
	flatten(prefix, tree, out)
	return out
}

func flatten(key string, v any, out map[string]string) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			flatten(key+"."+k, child, out)
		}
	case map[any]any:
		m, _ := asMap(node)
		flatten(key, m, out)
	case []any:
		for i, child := range node {
			flatten(key+"."+strconv.Itoa(i+1), child, out)
		}
	default:
		out[key] = scalar(node)
	}
}
