// Package qr renders member check-in tokens as scannable PNG images.
package qr

import (
	"bytes"
	"errors"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const DefaultSize = 320

var ErrEmptyToken = errors.New("empty_token")

// PNG encodes token at medium error correction, scaled to size pixels square.
func PNG(token string, size int) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	if size <= 0 {
		size = DefaultSize
	}

	code, err := qr.Encode(token, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
