package device

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned by every operation while no device is
// connected.
var ErrNoDevice = errors.New("no device connected")

// ErrPackNotFound is returned when a UUID is absent from the pack
// index.
var ErrPackNotFound = errors.New("pack not found on device")

// ErrInsufficientSpace rejects an upload larger than the device's
// remaining free space.
var ErrInsufficientSpace = errors.New("not enough free space on the device")

// UnsupportedVersionError reports a device metadata file with a format
// version this driver does not understand.
type UnsupportedVersionError struct {
	Version uint16
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported device metadata format version: %d", e.Version)
}

// PacksMismatchError rejects a reorder request referencing UUIDs that
// are not in the device index.
type PacksMismatchError struct {
	Missing []string
}

func (e *PacksMismatchError) Error() string {
	return fmt.Sprintf("packs on device do not match requested order (unknown: %v)", e.Missing)
}
