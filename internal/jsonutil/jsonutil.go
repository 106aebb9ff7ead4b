package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrEmptyInput = errors.New("empty json input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode unmarshals data into dst, tolerating a leading UTF-8 byte order
// mark and surrounding whitespace as written by some desktop editors.
func Decode(data []byte, dst any) error {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return ErrEmptyInput
	}
	return json.Unmarshal(data, dst)
}

// ReadFile decodes the JSON file at path into dst. It reports false with no
// error when the file is missing or blank, leaving dst untouched.
func ReadFile(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := Decode(data, dst); err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return false, nil
		}
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
