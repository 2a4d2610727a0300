package epub

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content file
type Content struct {
	Path      string            // File path within the package
	Document  *goquery.Document // Parsed HTML document
	CSSLinks  []string          // Referenced CSS file paths
	ImageRefs []string          // Referenced image paths
	Links     []string          // Hyperlink targets, fragment removed
}

// LoadContent loads and parses an XHTML content file.
// name is the file path within the package, used for relative path
// resolution. External and fragment-only references are not collected.
func LoadContent(name string, content []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Content{
		Path:      name,
		Document:  doc,
		CSSLinks:  []string{},
		ImageRefs: []string{},
		Links:     []string{},
	}

	baseDir := path.Dir(name)

	doc.Find("link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		if href, ok := localRef(s, "href"); ok {
			c.CSSLinks = append(c.CSSLinks, resolvePath(baseDir, href))
		}
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, ok := localRef(s, "src"); ok {
			c.ImageRefs = append(c.ImageRefs, resolvePath(baseDir, src))
		}
	})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if href, ok := localRef(s, "href"); ok {
			c.Links = append(c.Links, resolvePath(baseDir, href))
		}
	})

	return c, nil
}

// References returns every collected reference.
func (c *Content) References() []string {
	refs := make([]string, 0, len(c.CSSLinks)+len(c.ImageRefs)+len(c.Links))
	refs = append(refs, c.CSSLinks...)
	refs = append(refs, c.ImageRefs...)
	return append(refs, c.Links...)
}

// Title returns the document title.
func (c *Content) Title() string {
	return strings.TrimSpace(c.Document.Find("title").First().Text())
}

// localRef returns the attribute value with its fragment removed when it
// points inside the package.
func localRef(s *goquery.Selection, attr string) (string, bool) {
	v, ok := s.Attr(attr)
	if !ok {
		return "", false
	}
	v, _ = splitFragment(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	if u, err := url.Parse(v); err == nil && (u.Scheme != "" || u.Host != "") {
		return "", false
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	return v, true
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (p, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	p = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return p, fragment
}

// resolvePath resolves a relative path against a base directory
// baseDir: base directory (e.g., "OEBPS" for "OEBPS/contents_1.xhtml")
// relPath: relative path (e.g., "./resources/style.css")
// returns: resolved path (e.g., "OEBPS/resources/style.css")
func resolvePath(baseDir, relPath string) string {
	return path.Clean(path.Join(baseDir, relPath))
}
