// Package output holds generated artefacts (concept images, hyper-realistic
// renders, videos) together with the prompt that produced them.
//
// An Output carries exactly one Media value, either an Image or a Video, so
// "image XOR video" holds by construction instead of by checking two
// optional URL fields.
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fpang/archiflow/internal/media"
)

// Kind records which generation pass produced an output.
type Kind string

const (
	KindConcept        Kind = "concept"
	KindHyperRealistic Kind = "hyper-realistic"
	KindVideo          Kind = "video"
)

// Media is the rendered payload of an output: Image or Video.
type Media interface {
	// URL is the displayable location: a data URL for images, a blob URL
	// for videos.
	URL() string
	isMedia()
}

// Image is an inline image, always a base64 data URL.
type Image struct {
	DataURL string
}

func (i Image) URL() string { return i.DataURL }
func (Image) isMedia()      {}

// Decode returns the image MIME type and bytes behind the data URL.
func (i Image) Decode() (string, []byte, error) {
	return media.DecodeDataURL(i.DataURL)
}

// Video references bytes held in the blob store.
type Video struct {
	BlobURL  string
	MIMEType string
}

func (v Video) URL() string { return v.BlobURL }
func (Video) isMedia()      {}

// Output is one generation result. It is never mutated after creation;
// the only change an output sees is its removal from a Store.
type Output struct {
	ID     string
	Kind   Kind
	Media  Media
	Prompt string
	// BaseImageID points at the reference file the output was derived
	// from. It is a lookup key only and may dangle after deletion.
	BaseImageID string
	// SourceOutputID is set on videos rendered from an earlier image output.
	SourceOutputID string
	CreatedAt      time.Time
}

// Image returns the image payload, if the output is an image.
func (o Output) Image() (Image, bool) {
	img, ok := o.Media.(Image)
	return img, ok
}

// DownloadName is the save-as filename for the output,
// "archiflow-output-<id>.<ext>".
func (o Output) DownloadName() string {
	ext := "png"
	switch m := o.Media.(type) {
	case Image:
		if mimeType, _, err := m.Decode(); err == nil {
			ext = media.Extension(mimeType)
		}
	case Video:
		ext = media.Extension(m.MIMEType)
		if ext == "bin" {
			ext = "mp4"
		}
	}
	return fmt.Sprintf("archiflow-output-%s.%s", o.ID, ext)
}

// View is the wire shape the front-end renders: exactly one of imageUrl
// and videoUrl is set.
type View struct {
	ID             string    `json:"id"`
	Type           Kind      `json:"type"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	VideoURL       string    `json:"videoUrl,omitempty"`
	Prompt         string    `json:"prompt"`
	BaseImageID    string    `json:"baseImageId,omitempty"`
	SourceOutputID string    `json:"sourceOutputId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// View flattens the media variant into imageUrl/videoUrl. A non-empty
// imageURL replaces the inline data URL of an image output.
func (o Output) View(imageURL string) View {
	v := View{
		ID:             o.ID,
		Type:           o.Kind,
		Prompt:         o.Prompt,
		BaseImageID:    o.BaseImageID,
		SourceOutputID: o.SourceOutputID,
		CreatedAt:      o.CreatedAt,
	}
	switch m := o.Media.(type) {
	case Image:
		v.ImageURL = m.DataURL
		if imageURL != "" {
			v.ImageURL = imageURL
		}
	case Video:
		v.VideoURL = m.BlobURL
	}
	return v
}

// MarshalJSON encodes the output with its image inline.
func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.View(""))
}
