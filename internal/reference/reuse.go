package reference

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/media"
	"github.com/fpang/archiflow/internal/output"
)

// reuseNamePrefix names files created from generated outputs.
const reuseNamePrefix = "Gen-"

// FromOutput copies an image output into a new reference file with its
// own id and bytes. It reports false for video outputs, which cannot be
// reused. A payload that fails to decode still yields a file, empty but
// addressable, so the user sees the attempt land.
func FromOutput(o output.Output) (File, bool) {
	img, ok := o.Image()
	if !ok {
		return File{}, false
	}

	f := File{
		ID:         uuid.NewString(),
		Name:       reuseName(o.ID),
		MIMEType:   media.MIMEPNG,
		Kind:       media.KindImage,
		PreviewURL: img.DataURL,
	}

	mimeType, data, err := img.Decode()
	if err != nil {
		log.Warn().Err(err).Str("output_id", o.ID).Msg("Failed to decode output image, reusing as empty file")
		return f, true
	}
	f.MIMEType = mimeType
	f.Data = data
	f.Size = len(data)
	return f, true
}

func reuseName(outputID string) string {
	if len(outputID) > 4 {
		outputID = outputID[:4]
	}
	return reuseNamePrefix + outputID
}
