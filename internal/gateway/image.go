package gateway

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const MaxImageBytes = 10 << 20

var (
	ErrNotImage      = errors.New("gateway: attachment is not an image")
	ErrImageTooLarge = errors.New("gateway: image too large")
)

// EncodeImage sniffs the content type of data and returns it as a data URI.
func EncodeImage(data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
