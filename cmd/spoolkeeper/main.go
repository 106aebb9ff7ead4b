package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/quailyquaily/spoolkeeper/inventory"
)

const (
	exitOK       = 0
	exitError    = 1
	exitInvalid  = 2
	exitNotFound = 3
	exitConflict = 4
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, inventory.ErrNotFound):
		return exitNotFound
	case errors.Is(err, inventory.ErrBarcodeExists):
		return exitConflict
	case errors.Is(err, inventory.ErrInvalid), errors.Is(err, barcode.ErrMalformed), errors.Is(err, barcode.ErrUnresolved):
		return exitInvalid
	default:
		return exitError
	}
}

func main() {
	root, c := newRootCmd()
	if err := execute(root, c); err != nil {
		fmt.Fprintln(os.Stderr, clifmt.Warn("error: ")+err.Error())
		os.Exit(exitCode(err))
	}
}
