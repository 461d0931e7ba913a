package convert

import (
	"fmt"

	"fabula/internal/format"
)

// AlreadyInFormatError rejects a no-op conversion: the pack is already
// stored in the requested format.
type AlreadyInFormatError struct {
	Pack   string
	Format format.PackFormat
}

func (e *AlreadyInFormatError) Error() string {
	return fmt.Sprintf("pack %s is already in %s format", e.Pack, e.Format.Label())
}

// ConversionError wraps any failure between reading the source pack
// and moving the converted result into the library.
type ConversionError struct {
	Source format.PackFormat
	Target format.PackFormat
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s pack to %s: %v", e.Source.Label(), e.Target.Label(), e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
