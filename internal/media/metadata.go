package media

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// ImageMetadata is the EXIF subset that helps the reasoning model ground a
// site photo: when and where it was taken and with what camera.
type ImageMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractImageMetadata reads EXIF from in-memory image bytes. Only the
// metadata blocks are parsed, never the pixel data.
func ExtractImageMetadata(data []byte) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	m := &ImageMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		m.Latitude = gps.Latitude()
		m.Longitude = gps.Longitude()
		m.HasGPS = true
	}

	// DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		m.DateTaken, m.HasDate = exifData.DateTimeOriginal(), true
	case !exifData.CreateDate().IsZero():
		m.DateTaken, m.HasDate = exifData.CreateDate(), true
	case !exifData.ModifyDate().IsZero():
		m.DateTaken, m.HasDate = exifData.ModifyDate(), true
	}

	m.CameraMake = strings.TrimSpace(exifData.Make)
	m.CameraModel = strings.TrimSpace(exifData.Model)

	return m, nil
}

// IsEmpty reports whether no useful field was found.
func (m *ImageMetadata) IsEmpty() bool {
	return m == nil || (!m.HasGPS && !m.HasDate && m.CameraMake == "" && m.CameraModel == "")
}

// Summary renders the metadata as one compact line for prompt context,
// e.g. "taken Monday, June 2, 2025 3:04 PM; GPS 40.748800, -73.985700".
func (m *ImageMetadata) Summary() string {
	if m.IsEmpty() {
		return ""
	}
	var parts []string
	if m.HasDate {
		parts = append(parts, "taken "+m.DateTaken.Format("Monday, January 2, 2006 3:04 PM"))
	}
	if m.HasGPS {
		parts = append(parts, fmt.Sprintf("GPS %.6f, %.6f", m.Latitude, m.Longitude))
	}
	if camera := strings.TrimSpace(m.CameraMake + " " + m.CameraModel); camera != "" {
		parts = append(parts, "camera "+camera)
	}
	return strings.Join(parts, "; ")
}
