// Package reference holds the files a user attaches to a project: context
// documents that ground prompt refinement, and base images that
// generation edits. Each entry owns its bytes; nothing is shared between
// collections.
package reference

import (
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/media"
)

// File is one uploaded asset.
type File struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	MIMEType string     `json:"mimeType"`
	Kind     media.Kind `json:"type"`
	// PreviewURL is a data URL, set for image files only.
	PreviewURL string `json:"previewUrl,omitempty"`
	Size       int    `json:"size"`
	// Metadata is the one-line EXIF summary of an image, if it had any.
	Metadata string `json:"metadata,omitempty"`

	Data []byte `json:"-"`
}

// Upload is a file as received from the client, before classification.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// NewFile classifies an upload and assigns it a fresh id. No size or type
// validation happens here; every upload is accepted.
func NewFile(u Upload) File {
	mimeType := media.DetectMIME(u.MIMEType, u.Data)
	f := File{
		ID:       uuid.NewString(),
		Name:     u.Name,
		MIMEType: mimeType,
		Kind:     media.Classify(mimeType),
		Size:     len(u.Data),
		Data:     u.Data,
	}

	if f.Kind == media.KindImage {
		f.PreviewURL = media.Preview(mimeType, u.Data, media.DefaultPreviewMaxDimension)
		if meta, err := media.ExtractImageMetadata(u.Data); err == nil {
			f.Metadata = meta.Summary()
		} else {
			log.Debug().Err(err).Str("name", f.Name).Msg("No EXIF metadata in image")
		}
	}
	return f
}

// Collection is an ordered list of files. Insertion order is display
// order. Like output.Store it is a value type and never mutates in place.
type Collection []File

// Add returns a collection with one new entry per upload appended, in
// input order.
func (c Collection) Add(uploads ...Upload) Collection {
	next := slices.Clone(c)
	for _, u := range uploads {
		next = append(next, NewFile(u))
	}
	return next
}

// Append returns a collection with f appended as is.
func (c Collection) Append(f File) Collection {
	return append(slices.Clone(c), f)
}

// Remove returns a collection without the file with the given id. It is a
// no-op for unknown ids.
func (c Collection) Remove(id string) Collection {
	return slices.DeleteFunc(slices.Clone(c), func(f File) bool { return f.ID == id })
}

// Find looks up a file by id. A missing id is a normal outcome: ids held
// elsewhere may point at files that were since removed.
func (c Collection) Find(id string) (File, bool) {
	for _, f := range c {
		if f.ID == id {
			return f, true
		}
	}
	return File{}, false
}

// Images returns only the image-kind entries.
func (c Collection) Images() Collection {
	var out Collection
	for _, f := range c {
		if f.Kind == media.KindImage {
			out = append(out, f)
		}
	}
	return out
}
