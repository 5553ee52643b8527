package lessonplanner

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DataURI builds a data:<mime>;base64,<payload> string
func DataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// EncodeDataURI wraps raw bytes in a data URI, sniffing the MIME type
func EncodeDataURI(data []byte) string {
	return DataURI(http.DetectContentType(data), base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URI has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded: %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return mimeType, data, nil
}

func sniffBase64Mime(b64 string) string {
	prefix := b64
	if len(prefix) > 64 {
		prefix = prefix[:64]
	}
	raw, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil || len(raw) == 0 {
		return "image/png"
	}
	mimeType := http.DetectContentType(raw)
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/png"
	}
	return mimeType
}

func extensionForMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
