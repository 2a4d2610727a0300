package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"

	// UniqueIdentifierID is the id of the dc:identifier named by the package.
	UniqueIdentifierID = "BookID"
)

// Package is an EPUB 3.0 package document to be written.
type Package struct {
	Metadata Metadata
	Manifest []ManifestItem
	Spine    []SpineItem

	PageProgressionDirection string
}

// opfOut* mirror the read side with literal prefixed names so the written
// document keeps the dc: prefix.
type opfOutPackage struct {
	XMLName  xml.Name       `xml:"package"`
	Xmlns    string         `xml:"xmlns,attr"`
	UniqueID string         `xml:"unique-identifier,attr"`
	Version  string         `xml:"version,attr"`
	Lang     string         `xml:"xml:lang,attr,omitempty"`
	Metadata opfOutMetadata `xml:"metadata"`
	Manifest opfOutManifest `xml:"manifest"`
	Spine    opfOutSpine    `xml:"spine"`
}

type opfOutMetadata struct {
	XmlnsDC  string          `xml:"xmlns:dc,attr"`
	Elements []opfOutElement `xml:",any"`
}

type opfOutElement struct {
	XMLName  xml.Name
	ID       string `xml:"id,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Refines  string `xml:"refines,attr,omitempty"`
	Scheme   string `xml:"scheme,attr,omitempty"`
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfOutManifest struct {
	Items []opfManifestItemOut `xml:"item"`
}

type opfManifestItemOut struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfOutSpine struct {
	PageProgressionDirection string          `xml:"page-progression-direction,attr,omitempty"`
	ItemRefs                 []opfItemRefOut `xml:"itemref"`
}

type opfItemRefOut struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr,omitempty"`
}

// Marshal renders the package document with an XML declaration.
func (p *Package) Marshal() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	out := opfOutPackage{
		Xmlns:    opfNamespace,
		UniqueID: UniqueIdentifierID,
		Version:  "3.0",
		Lang:     p.Metadata.Language,
		Metadata: opfOutMetadata{
			XmlnsDC:  dcNamespace,
			Elements: metadataElements(p.Metadata),
		},
		Spine: opfOutSpine{PageProgressionDirection: p.PageProgressionDirection},
	}

	for _, item := range p.Manifest {
		out.Manifest.Items = append(out.Manifest.Items, opfManifestItemOut{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: strings.Join(item.Properties, " "),
		})
	}
	for _, ref := range p.Spine {
		linear := ""
		if !ref.Linear {
			linear = "no"
		}
		out.Spine.ItemRefs = append(out.Spine.ItemRefs, opfItemRefOut{IDRef: ref.IDRef, Linear: linear})
	}

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OPF: %w", err)
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

func (p *Package) validate() error {
	ids := make(map[string]bool, len(p.Manifest))
	nav := 0
	for _, item := range p.Manifest {
		if item.ID == "" {
			return fmt.Errorf("manifest item %q has no id", item.Href)
		}
		if ids[item.ID] {
			return fmt.Errorf("duplicate manifest id %q", item.ID)
		}
		ids[item.ID] = true
		if item.HasProperty(PropertyNav) {
			nav++
		}
	}
	if nav != 1 {
		return fmt.Errorf("package must have exactly one nav item, got %d", nav)
	}
	for _, ref := range p.Spine {
		if !ids[ref.IDRef] {
			return fmt.Errorf("spine references unknown manifest id %q", ref.IDRef)
		}
	}
	return nil
}

func metadataElements(md Metadata) []opfOutElement {
	var els []opfOutElement
	add := func(el opfOutElement) { els = append(els, el) }
	dc := func(name string) xml.Name { return xml.Name{Local: "dc:" + name} }
	meta := xml.Name{Local: "meta"}

	if md.Identifier != "" {
		add(opfOutElement{XMLName: dc("identifier"), ID: UniqueIdentifierID, Value: md.Identifier})
		add(opfOutElement{XMLName: meta, Property: "dcterms:identifier", ID: "uuid", Value: md.Identifier})
	}
	if md.Language != "" {
		add(opfOutElement{XMLName: dc("language"), Value: md.Language})
		add(opfOutElement{XMLName: meta, Property: "dcterms:language", ID: "pub-lang", Value: md.Language})
	}
	if md.Date != "" {
		add(opfOutElement{XMLName: dc("date"), Value: md.Date})
	}
	if md.Modified != "" {
		add(opfOutElement{XMLName: meta, Property: "dcterms:modified", Value: md.Modified})
	}
	if md.Title != "" {
		add(opfOutElement{XMLName: dc("title"), Value: md.Title})
		add(opfOutElement{XMLName: meta, Property: "dcterms:title", ID: "dcterm-title", Value: md.Title})
	}
	for _, c := range md.Creators {
		if c.Name == "" {
			continue
		}
		add(opfOutElement{XMLName: dc("creator"), ID: c.ID, Value: c.Name})
		if c.Role != "" && c.ID != "" {
			add(opfOutElement{
				XMLName:  meta,
				Refines:  "#" + c.ID,
				Property: "role",
				Scheme:   "marc:relators",
				ID:       "role" + strings.TrimPrefix(c.ID, "creator"),
				Value:    c.Role,
			})
		}
	}
	if md.Rights != "" {
		add(opfOutElement{XMLName: dc("rights"), Value: md.Rights})
		add(opfOutElement{XMLName: meta, Property: "dcterms:rights", ID: "rights", Value: md.Rights})
	}
	if md.CoverID != "" {
		add(opfOutElement{XMLName: meta, Name: "cover", Content: md.CoverID})
	}
	return els
}
