package epub

import (
	"mime"
	"path"
	"strings"
)

// Core media types of EPUB 3 publications, keyed by lower-case extension.
// mime.TypeByExtension depends on the host's mime tables, so the types that
// end up in the manifest are fixed here.
var mediaTypes = map[string]string{
	".xhtml": "application/xhtml+xml",
	".html":  "application/xhtml+xml",
	".htm":   "application/xhtml+xml",
	".css":   "text/css",
	".txt":   "text/plain",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".js":    "application/javascript",
	".ncx":   "application/x-dtbncx+xml",
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".smil":  "application/smil+xml",
	".opf":   "application/oebps-package+xml",
}

// DefaultMediaType is used for extensions nobody knows about.
const DefaultMediaType = "application/octet-stream"

// MediaType returns the media type for a file name or href.
func MediaType(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
	if ext == "" {
		return DefaultMediaType
	}
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return DefaultMediaType
}
