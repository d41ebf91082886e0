package model

import (
	"encoding/base64"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidDataURL = goerr.New("invalid data URL")

// EncodeDataURL renders bytes as a base64 data URI, the form MediaURL
// uses for generated images.
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URI back into bytes and MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", goerr.Wrap(ErrInvalidDataURL, "missing data: scheme")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", goerr.Wrap(ErrInvalidDataURL, "missing payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", goerr.Wrap(ErrInvalidDataURL, "not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to decode data URL payload")
	}
	return data, mimeType, nil
}
