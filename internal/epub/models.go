package epub

// OPF represents the Open Package Format document
type OPF struct {
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // ids in document order
	Spine         []SpineItem

	PageProgressionDirection string
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Identifier string
	Language   string
	Date       string
	Modified   string // dcterms:modified
	Title      string
	Creators   []Creator
	Rights     string
	CoverID    string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Creator represents a creator (author, illustrator, etc.) of the book
type Creator struct {
	ID   string // element id, referenced by role refinements
	Name string
	Role string // marc:relators code, e.g. "aut"
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item carries the given property.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// Manifest properties written by the generator.
const (
	PropertyNav        = "nav"
	PropertyCoverImage = "cover-image"
)
