package epub

import (
	"strings"
	"testing"
)

func TestLoadContent_References(t *testing.T) {
	xhtml := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title> 目次 </title>
  <link rel="stylesheet" type="text/css" href="./resources/book.css"/>
  <link rel="icon" href="./resources/icon.png"/>
</head>
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="./contents_1.xhtml">First</a></li>
      <li><a href="contents_2.xhtml#sec1">Second</a></li>
      <li><a href="#local">Local</a></li>
      <li><a href="https://example.com/">External</a></li>
      <li><a href="mailto:someone@example.com">Mail</a></li>
    </ol>
  </nav>
  <img src="./resources/%E8%A1%A8%E7%B4%99.png" alt="cover"/>
  <img alt="no src"/>
</body>
</html>`

	c, err := LoadContent("OEBPS/contents_3.xhtml", []byte(xhtml))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}

	if c.Title() != "目次" {
		t.Errorf("Title() = %q, want %q", c.Title(), "目次")
	}
	if strings.Join(c.CSSLinks, ",") != "OEBPS/resources/book.css" {
		t.Errorf("CSSLinks = %v", c.CSSLinks)
	}
	if strings.Join(c.ImageRefs, ",") != "OEBPS/resources/表紙.png" {
		t.Errorf("ImageRefs = %v", c.ImageRefs)
	}
	wantLinks := "OEBPS/contents_1.xhtml,OEBPS/contents_2.xhtml"
	if strings.Join(c.Links, ",") != wantLinks {
		t.Errorf("Links = %v, want %s", c.Links, wantLinks)
	}
	if len(c.References()) != 4 {
		t.Errorf("References() = %v", c.References())
	}
}

func TestLoadContent_NestedPaths(t *testing.T) {
	xhtml := `<html><head><link rel="stylesheet" href="../styles/main.css"/></head>
<body><img src="../../images/a.png"/></body></html>`

	c, err := LoadContent("OEBPS/text/part/ch1.xhtml", []byte(xhtml))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}
	if c.CSSLinks[0] != "OEBPS/text/styles/main.css" {
		t.Errorf("CSSLinks[0] = %q", c.CSSLinks[0])
	}
	if c.ImageRefs[0] != "OEBPS/images/a.png" {
		t.Errorf("ImageRefs[0] = %q", c.ImageRefs[0])
	}
}

func TestLoadContent_NoReferences(t *testing.T) {
	c, err := LoadContent("OEBPS/contents_1.xhtml", []byte(`<html><body><p>サンプルコンテンツ</p></body></html>`))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}
	if len(c.References()) != 0 {
		t.Errorf("References() = %v, want none", c.References())
	}
	if got := c.Document.Find("p").Text(); got != "サンプルコンテンツ" {
		t.Errorf("body text = %q", got)
	}
}

func TestSplitFragment(t *testing.T) {
	tests := []struct {
		src, path, fragment string
	}{
		{"", "", ""},
		{"a.xhtml", "a.xhtml", ""},
		{"a.xhtml#x", "a.xhtml", "x"},
		{"#x", "", "x"},
		{"a.xhtml#x#y", "a.xhtml", "x#y"},
	}
	for _, tt := range tests {
		p, f := splitFragment(tt.src)
		if p != tt.path || f != tt.fragment {
			t.Errorf("splitFragment(%q) = %q, %q, want %q, %q", tt.src, p, f, tt.path, tt.fragment)
		}
	}
}
