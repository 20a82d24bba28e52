package media

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

var ErrMalformedDataURI = errors.New("malformed data URI")

// EncodeDataURI builds a base64 data URI. An empty mime is sniffed from the
// payload.
func EncodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the mime type and payload of a base64 data URI.
func DecodeDataURI(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, ErrMalformedDataURI
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, ErrMalformedDataURI
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrMalformedDataURI
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrMalformedDataURI
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return mime, data, nil
}

// DataURIMime returns the declared mime type without decoding the payload.
func DataURIMime(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return ""
	}
	meta, _, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return ""
	}
	mime, _, _ := strings.Cut(meta, ";")
	return mime
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
