package design

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Image is an opaque encoded image (PNG, JPEG, WebP) as exchanged with the
// provider. Values are replaced wholesale; Data is never modified in place.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// IsZero reports whether the image carries no bytes.
func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

// Equal reports whether two images have identical bytes and MIME type.
func (img Image) Equal(other Image) bool {
	return img.MIMEType == other.MIMEType && bytes.Equal(img.Data, other.Data)
}

// DataURI renders the image as a data: URI.
func (img Image) DataURI() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseImage accepts either a data: URI or bare base64 and returns the decoded
// image. When no MIME type is present it is sniffed from the bytes.
func ParseImage(s string) (Image, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return Image{}, fmt.Errorf("malformed data URI")
		}
		payload = data
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image payload")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}
