package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const defaultQuality = 85

// Processor normalizes cover images before they are embedded or served.
type Processor struct {
	maxSize int
	quality int
}

// NewProcessor creates a processor. maxSize <= 0 disables resizing.
func NewProcessor(maxSize, quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &Processor{maxSize: maxSize, quality: quality}
}

// DetectMIME sniffs the image type from its bytes, falling back to the declared type.
func DetectMIME(data []byte, declared string) string {
	switch {
	case len(data) >= 4 && string(data[:4]) == "\x89PNG":
		return "image/png"
	case len(data) >= 2 && string(data[:2]) == "\xFF\xD8":
		return "image/jpeg"
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if declared != "" {
		return declared
	}
	return "image/jpeg"
}

// Prepare returns the bytes and MIME type to embed for a cover.
// JPEG and PNG within bounds pass through untouched. Anything larger, or in a
// format players handle poorly (webp, gif), is decoded, resized and re-encoded.
func (p *Processor) Prepare(data []byte, declaredMIME string) ([]byte, string, error) {
	mime := DetectMIME(data, declaredMIME)
	passthrough := mime == "image/jpeg" || mime == "image/png"

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if passthrough {
			// Undecodable but plausibly valid, embed as-is.
			slog.Warn("Could not decode cover, embedding original bytes", "mime", mime, "error", err)
			return data, mime, nil
		}
		return nil, "", fmt.Errorf("failed to decode cover image: %w", err)
	}

	bounds := img.Bounds()
	needsResize := p.maxSize > 0 && (bounds.Dx() > p.maxSize || bounds.Dy() > p.maxSize)
	if passthrough && !needsResize {
		return data, mime, nil
	}
	if needsResize {
		img = p.resize(img)
	}

	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, img)
		mime = "image/png"
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality})
		mime = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode resized image: %w", err)
	}
	slog.Debug("Prepared cover image", "format", format, "mime", mime, "original", len(data), "prepared", buf.Len())
	return buf.Bytes(), mime, nil
}

// EncodeJPEG encodes an already decoded image, e.g. one fetched from the catalog.
func (p *Processor) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resize fits img within maxSize pixels, maintaining aspect ratio.
func (p *Processor) resize(img image.Image) image.Image {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width > height {
		height = (height * p.maxSize) / width
		width = p.maxSize
	} else {
		width = (width * p.maxSize) / height
		height = p.maxSize
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}
