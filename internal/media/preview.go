package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DefaultPreviewMaxDimension bounds the longest side of a preview.
const DefaultPreviewMaxDimension = 512

// previewJPEGQuality keeps previews small enough to inline in JSON.
const previewJPEGQuality = 80

// Preview returns a displayable data URL for image-kind content and ""
// for every other kind. Images larger than maxDimension are downscaled and
// re-encoded as JPEG; images the decoders cannot read are inlined as-is.
func Preview(mimeType string, data []byte, maxDimension int) string {
	if Classify(mimeType) != KindImage {
		return ""
	}

	thumb, err := thumbnail(data, maxDimension)
	if err != nil {
		log.Debug().Err(err).Str("mime_type", mimeType).Msg("Preview downscale skipped, inlining original")
		return EncodeDataURL(mimeType, data)
	}
	if thumb == nil {
		return EncodeDataURL(mimeType, data)
	}
	return EncodeDataURL("image/jpeg", thumb)
}

// thumbnail returns JPEG bytes of the image scaled to fit maxDimension, or
// nil when the image already fits.
func thumbnail(data []byte, maxDimension int) ([]byte, error) {
	if maxDimension <= 0 {
		maxDimension = DefaultPreviewMaxDimension
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return nil, nil
	}

	newW, newH := maxDimension, maxDimension
	if w > h {
		newH = h * maxDimension / w
	} else {
		newW = w * maxDimension / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("original_width", w).
		Int("original_height", h).
		Int("preview_width", newW).
		Int("preview_height", newH).
		Msg("Preview generated")

	return buf.Bytes(), nil
}
