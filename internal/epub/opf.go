package epub

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// opfPackage represents the OPF XML structure as read back
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata represents the metadata section
type opfMetadata struct {
	Title      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Date       []string        `xml:"http://purl.org/dc/elements/1.1/ date"`
	Rights     []string        `xml:"http://purl.org/dc/elements/1.1/ rights"`
	Meta       []opfMeta       `xml:"meta"`
}

// opfCreator represents a creator element
type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
	ID   string `xml:"id,attr"`
}

// opfIdentifier represents an identifier element
type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"` // EPUB 2.0: attribute value
	Value    string `xml:",chardata"`    // EPUB 3.0: element text content
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	PageProgressionDirection string       `xml:"page-progression-direction,attr"`
	ItemRefs                 []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure
// opfDir is the directory containing the OPF file (e.g., "OEBPS/")
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	opf := &OPF{
		Manifest:                 make(map[string]ManifestItem),
		PageProgressionDirection: pkg.Spine.PageProgressionDirection,
	}

	opf.Metadata = parseMetadata(&pkg.Metadata, pkg.UniqueID)

	for _, item := range pkg.Manifest.Items {
		if _, dup := opf.Manifest[item.ID]; dup {
			return nil, fmt.Errorf("duplicate manifest id %q", item.ID)
		}
		manifestItem := ManifestItem{
			ID:        item.ID,
			Href:      joinPath(opfDir, item.Href),
			MediaType: item.MediaType,
		}
		if item.Properties != "" {
			manifestItem.Properties = strings.Fields(item.Properties)
		}

		opf.Manifest[item.ID] = manifestItem
		opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
	}

	for _, itemRef := range pkg.Spine.ItemRefs {
		if _, ok := opf.Manifest[itemRef.IDRef]; !ok {
			return nil, fmt.Errorf("spine references unknown manifest id %q", itemRef.IDRef)
		}
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:  itemRef.IDRef,
			Linear: itemRef.Linear != "no",
		})
	}

	return opf, nil
}

// parseMetadata parses the metadata section
func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	md := Metadata{
		Creators: []Creator{},
	}

	if len(meta.Title) > 0 {
		md.Title = meta.Title[0]
	}
	if len(meta.Language) > 0 {
		md.Language = meta.Language[0]
	}
	if len(meta.Date) > 0 {
		md.Date = meta.Date[0]
	}
	if len(meta.Rights) > 0 {
		md.Rights = meta.Rights[0]
	}

	// Identifier (find the one marked as unique-identifier)
	for _, id := range meta.Identifier {
		if id.ID == uniqueID {
			md.Identifier = id.Value
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = meta.Identifier[0].Value
	}

	for _, creator := range meta.Creator {
		md.Creators = append(md.Creators, Creator{
			ID:   creator.ID,
			Name: creator.Name,
			Role: creator.Role,
		})
	}

	for _, m := range meta.Meta {
		switch {
		case m.Name == "cover" && m.Content != "" && md.CoverID == "":
			md.CoverID = m.Content
		case m.Property == "dcterms:modified" && md.Modified == "":
			md.Modified = strings.TrimSpace(m.Value)
		case m.Property == "role" && m.Refines != "":
			applyCreatorRole(&md, m)
		}
	}

	return md
}

// applyCreatorRole applies an EPUB 3.0 role refinement to its creator
func applyCreatorRole(md *Metadata, m opfMeta) {
	id := strings.TrimPrefix(m.Refines, "#")
	for i := range md.Creators {
		if md.Creators[i].ID != id {
			continue
		}
		// EPUB 3.0 uses chardata (Value), EPUB 2.0 uses content attribute (Content)
		if m.Value != "" {
			md.Creators[i].Role = strings.TrimSpace(m.Value)
		} else {
			md.Creators[i].Role = m.Content
		}
		return
	}
}

// joinPath joins OPF directory with a relative href using zip (slash) paths
func joinPath(base, rel string) string {
	if base == "" {
		return path.Clean(rel)
	}
	return path.Join(base, rel)
}

// Item returns the manifest item with the given id.
func (opf *OPF) Item(id string) (ManifestItem, bool) {
	item, ok := opf.Manifest[id]
	return item, ok
}

// ItemsWithProperty returns manifest items carrying prop, in document order.
func (opf *OPF) ItemsWithProperty(prop string) []ManifestItem {
	var items []ManifestItem
	for _, id := range opf.ManifestOrder {
		if item := opf.Manifest[id]; item.HasProperty(prop) {
			items = append(items, item)
		}
	}
	return items
}

// ItemsWithMediaType returns manifest items of the given media type, in
// document order.
func (opf *OPF) ItemsWithMediaType(mediaType string) []ManifestItem {
	var items []ManifestItem
	for _, id := range opf.ManifestOrder {
		if item := opf.Manifest[id]; item.MediaType == mediaType {
			items = append(items, item)
		}
	}
	return items
}
