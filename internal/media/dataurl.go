package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformedDataURL is returned when a string is not a base64 data URL.
var ErrMalformedDataURL = errors.New("malformed data URL")

// EncodeDataURL renders bytes as a "data:<mime>;base64,<payload>" URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its MIME type and bytes.
// A missing MIME type in the header defaults to image/png.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrMalformedDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformedDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, ErrMalformedDataURL
	}
	if mimeType == "" {
		mimeType = MIMEPNG
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrMalformedDataURL, err)
	}
	return mimeType, data, nil
}
