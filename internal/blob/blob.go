// Package blob stores binary artefacts too large to inline in JSON
// snapshots, generated videos in particular. Stored blobs are served back
// to the browser under /api/blobs/{id}.
package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned for unknown or deleted blob ids.
var ErrNotFound = errors.New("blob not found")

// ErrFull is returned by a bounded store that has no room left.
var ErrFull = errors.New("blob store full")

// URLPrefix is the API path under which blobs are served.
const URLPrefix = "/api/blobs/"

// Blob is a stored binary payload.
type Blob struct {
	ID       string
	MIMEType string
	Data     []byte
}

// Store persists blobs by id. A blob lives until it is deleted; owners
// delete the blobs their outputs reference when those outputs go away.
type Store interface {
	Put(ctx context.Context, b Blob) error
	Get(ctx context.Context, id string) (*Blob, error)
	// Delete removes a blob. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// URL returns the API path for a blob id.
func URL(id string) string {
	return URLPrefix + id
}

// IDFromURL returns the blob id behind a URL produced by URL.
func IDFromURL(url string) string {
	return strings.TrimPrefix(url, URLPrefix)
}
