package assemble

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/webp"

	"tosho/internal/sources"
)

// normalizedImage is a page image in a container-friendly encoding.
type normalizedImage struct {
	data   []byte
	format string // "jpg" or "png"
	width  int
	height int
}

// normalizePage decodes a page and, when needed, transcodes it to JPEG.
// JPEG and PNG pass through untouched apart from dimension probing.
func normalizePage(page sources.Page) (normalizedImage, error) {
	format := sniffFormat(page)
	switch format {
	case "jpg", "png":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(page.Data))
		if err != nil {
			return normalizedImage{}, fmt.Errorf("%w: decode page: %w", ErrAssembly, err)
		}
		return normalizedImage{data: page.Data, format: format, width: cfg.Width, height: cfg.Height}, nil
	case "webp":
		img, err := webp.Decode(bytes.NewReader(page.Data))
		if err != nil {
			return normalizedImage{}, fmt.Errorf("%w: decode webp page: %w", ErrAssembly, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return normalizedImage{}, fmt.Errorf("%w: transcode webp page: %w", ErrAssembly, err)
		}
		bounds := img.Bounds()
		return normalizedImage{data: buf.Bytes(), format: "jpg", width: bounds.Dx(), height: bounds.Dy()}, nil
	default:
		return normalizedImage{}, fmt.Errorf("%w: unsupported page format %q", ErrAssembly, format)
	}
}

// sniffFormat prefers magic bytes over the server-declared content type.
func sniffFormat(page sources.Page) string {
	data := page.Data
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	}

	contentType := strings.ToLower(page.ContentType)
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	}
	return ""
}
