package epub

import (
	"bytes"
	"encoding/xml"
)

// Fixed names of the OCF container.
const (
	MimeType        = "application/epub+zip"
	MimetypeName    = "mimetype"
	ContainerPath   = "META-INF/container.xml"
	PackageDir      = "OEBPS"
	PackageFileName = "book.opf"
	PackagePath     = PackageDir + "/" + PackageFileName

	packageMediaType = "application/oebps-package+xml"
)

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// ContainerXML returns the container descriptor naming rootFile as the
// package document.
func ContainerXML(rootFile string) []byte {
	var path bytes.Buffer
	_ = xml.EscapeText(&path, []byte(rootFile))

	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">` + "\n")
	b.WriteString("  <rootfiles>\n")
	b.WriteString(`    <rootfile full-path="` + path.String() + `" media-type="` + packageMediaType + `"/>` + "\n")
	b.WriteString("  </rootfiles>\n")
	b.WriteString("</container>\n")
	return b.Bytes()
}
