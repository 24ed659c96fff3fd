// Package bundle packs every output of a project into one ZIP archive,
// compressed with Zstandard, plus a manifest recording the prompt behind
// each file.
package bundle

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/output"
)

// MethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const MethodZstd uint16 = 93

// ManifestName is the archive entry listing every bundled output.
const ManifestName = "manifest.json"

// ManifestEntry describes one bundled output.
type ManifestEntry struct {
	File string `json:"file,omitempty"`
	// Missing is set when the output's payload could not be read.
	Missing        bool        `json:"missing,omitempty"`
	ID             string      `json:"id"`
	Type           output.Kind `json:"type"`
	Prompt         string      `json:"prompt"`
	BaseImageID    string      `json:"baseImageId,omitempty"`
	SourceOutputID string      `json:"sourceOutputId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Write streams a ZIP of outputs to w. Video bytes are read from blobs.
// Outputs whose payload cannot be read get no file; their manifest entry
// is marked missing. The returned count covers written files only.
func Write(ctx context.Context, w io.Writer, outputs output.Store, blobs blob.Store) (int, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(MethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})

	manifest := make([]ManifestEntry, 0, len(outputs))
	written := 0
	for _, o := range outputs {
		entry := ManifestEntry{
			ID:             o.ID,
			Type:           o.Kind,
			Prompt:         o.Prompt,
			BaseImageID:    o.BaseImageID,
			SourceOutputID: o.SourceOutputID,
			CreatedAt:      o.CreatedAt,
		}

		data, err := payload(ctx, o, blobs)
		if err != nil {
			log.Warn().Err(err).Str("output_id", o.ID).Msg("Output payload unreadable, marked missing in bundle")
			entry.Missing = true
			manifest = append(manifest, entry)
			continue
		}
		entry.File = o.DownloadName()
		if err := writeEntry(zw, entry.File, o.CreatedAt, data); err != nil {
			return 0, err
		}
		manifest = append(manifest, entry)
		written++
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, time.Now(), manifestJSON); err != nil {
		return 0, err
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close ZIP writer: %w", err)
	}
	log.Info().Int("files", written).Int("missing", len(outputs)-written).Msg("Output bundle written")
	return written, nil
}

func writeEntry(zw *zip.Writer, name string, modTime time.Time, data []byte) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: MethodZstd,
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}
	header.Modified = modTime

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write to ZIP for %s: %w", name, err)
	}
	return nil
}

func payload(ctx context.Context, o output.Output, blobs blob.Store) ([]byte, error) {
	switch m := o.Media.(type) {
	case output.Image:
		_, data, err := m.Decode()
		return data, err
	case output.Video:
		b, err := blobs.Get(ctx, blob.IDFromURL(m.BlobURL))
		if err != nil {
			return nil, err
		}
		return b.Data, nil
	default:
		return nil, fmt.Errorf("output %s has no media", o.ID)
	}
}
