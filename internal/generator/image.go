package generator

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/yuanying/epubgen/internal/epub"
	"github.com/yuanying/epubgen/internal/logfields"
)

const defaultMaxPixels = 100 * 1000 * 1000 // 100 megapixels

// ImageInfo describes a probed image resource.
// Warning is set (non-empty) when the image could not be decoded; the file
// is still packaged unchanged.
type ImageInfo struct {
	Path    string
	Width   int
	Height  int
	Format  string
	Warning string
}

// ProbeImage decodes a raster image to check that reading systems can
// render it. Vector and unknown formats are not probed.
func ProbeImage(path string, maxPixels int) ImageInfo {
	info := ImageInfo{Path: path}

	mediaType := epub.MediaType(path)
	if !isRaster(mediaType) {
		info.Format = mediaType
		return info
	}

	data, err := os.ReadFile(path)
	if err != nil {
		info.Warning = fmt.Sprintf("image read failed: %v", err)
		return info
	}
	if len(data) == 0 {
		info.Warning = "image is empty"
		return info
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		info.Warning = fmt.Sprintf("image decode failed: %v", err)
		return info
	}
	info.Width, info.Height, info.Format = cfg.Width, cfg.Height, strings.ToLower(format)

	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if maxPixels > 0 && pixels > uint64(maxPixels) {
		info.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
		return info
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		info.Warning = fmt.Sprintf("image decode failed: %v", err)
		return info
	}
	info.Width, info.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return info
}

func isRaster(mediaType string) bool {
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// probeImages probes every staged image. Failures are only logged.
func (p *Pipeline) probeImages() {
	oebps := filepath.Join(p.ws.Path(), epub.PackageDir)
	for _, img := range p.book.Images {
		info := ProbeImage(filepath.Join(oebps, filepath.FromSlash(img.Destination)), defaultMaxPixels)
		if info.Warning == "" {
			slog.Debug("Probed image", logfields.Path(img.Destination),
				slog.Int("width", info.Width), slog.Int("height", info.Height), slog.String("format", info.Format))
			continue
		}
		if img.IsCover {
			slog.Warn("Cover image may not render", logfields.Path(img.Source), slog.String("reason", info.Warning))
			continue
		}
		slog.Warn("Image may not render", logfields.Path(img.Source), slog.String("reason", info.Warning))
	}
}
