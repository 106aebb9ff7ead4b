package inventory

import "errors"

var (
	ErrNotFound      = errors.New("roll not found")
	ErrBarcodeExists = errors.New("barcode already exists")
	ErrInvalid       = errors.New("invalid input")
)
