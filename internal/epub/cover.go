package epub

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta"
}

// DetectCover detects the cover image from the OPF manifest.
// Methods are tried in priority order:
//  1. properties="cover-image" (EPUB 3.0)
//  2. meta name="cover" (EPUB 2.0)
//
// Returns nil if no cover image is found.
func (opf *OPF) DetectCover() *CoverInfo {
	if items := opf.ItemsWithProperty(PropertyCoverImage); len(items) > 0 {
		return coverInfo(items[0], "properties")
	}

	if opf.Metadata.CoverID != "" {
		if item, ok := opf.Manifest[opf.Metadata.CoverID]; ok {
			return coverInfo(item, "meta")
		}
	}

	return nil
}

func coverInfo(item ManifestItem, method string) *CoverInfo {
	return &CoverInfo{
		ManifestID:      item.ID,
		Href:            item.Href,
		MediaType:       item.MediaType,
		DetectionMethod: method,
	}
}

// FindCoverImage finds the cover image in the manifest.
// This is a convenience wrapper around DetectCover.
func (opf *OPF) FindCoverImage() (string, bool) {
	if c := opf.DetectCover(); c != nil {
		return c.Href, true
	}
	return "", false
}
