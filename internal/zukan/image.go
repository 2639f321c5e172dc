package zukan

import (
	"encoding/hex"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// EncodeImage returns the hex form in which photos are kept on entries.
func EncodeImage(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeImage reverses EncodeImage.
func DecodeImage(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return b, nil
}

// DetectImageType sniffs the MIME type of a photo.
func DetectImageType(b []byte) string {
	return mimetype.Detect(b).String()
}

// IsSupportedImage reports whether b is a PNG or JPEG photo.
func IsSupportedImage(b []byte) bool {
	m := mimetype.Detect(b)
	return m.Is("image/png") || m.Is("image/jpeg")
}
