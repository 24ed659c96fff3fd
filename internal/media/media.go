// Package media classifies uploaded files and derives the displayable
// artefacts the workflow needs from raw bytes: a kind, a MIME type when
// the browser did not declare one, an image preview and an EXIF summary.
package media

import (
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
)

// Kind is the coarse category of an uploaded file. It is derived once from
// the MIME type at upload time and never changes afterwards.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindText  Kind = "text"
	KindOther Kind = "other"
)

// Fallback MIME types used when neither the client nor sniffing can tell.
const (
	MIMEOctetStream = "application/octet-stream"
	MIMEPlainText   = "text/plain"
	MIMEPNG         = "image/png"
	MIMEMP4         = "video/mp4"
)

// textLikeTypes are non text/* MIME types whose payload is readable text.
var textLikeTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/rtf":        true,
	"application/x-markdown": true,
	"application/csv":        true,
}

// extensions maps MIME types to the file extension used for downloads.
var extensions = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"application/pdf": "pdf",
	"text/plain":      "txt",
}

// Classify maps a MIME type to a Kind: image/* is an image,
// application/pdf a PDF, text/* and known text-like types are text,
// anything else is other.
func Classify(mimeType string) Kind {
	mt := normalize(mimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mt, "text/"), textLikeTypes[mt]:
		return KindText
	default:
		return KindOther
	}
}

// DetectMIME returns the declared MIME type when present. Otherwise it
// sniffs the magic bytes, falls back to text/plain for valid UTF-8 and to
// application/octet-stream for anything else.
func DetectMIME(declared string, data []byte) string {
	if mt := normalize(declared); mt != "" {
		return mt
	}

	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		log.Debug().Str("mime_type", kind.MIME.Value).Msg("Sniffed MIME type from content")
		return kind.MIME.Value
	}
	if len(data) > 0 && utf8.Valid(data) {
		return MIMEPlainText
	}
	return MIMEOctetStream
}

// Extension returns the download extension for a MIME type ("bin" if unknown).
func Extension(mimeType string) string {
	if ext, ok := extensions[normalize(mimeType)]; ok {
		return ext
	}
	return "bin"
}

// normalize lower-cases a MIME type and drops parameters such as charset.
func normalize(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
