package device

import (
	"bytes"
	"errors"
	"testing"

	"fabula/internal/testsupport"
)

func TestParseMetadata(t *testing.T) {
	info, err := parseMetadata(bytes.NewReader(testsupport.DeviceMetadata(t, 2, 6, 12345)))
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}
	if info.FirmwareMajor != 2 || info.FirmwareMinor != 6 {
		t.Errorf("firmware = %d.%d, want 2.6", info.FirmwareMajor, info.FirmwareMinor)
	}
	if info.SerialNumber != "00000000012345" {
		t.Errorf("serial = %q, want zero-padded decimal", info.SerialNumber)
	}
	if len(info.UUID) != 256 {
		t.Errorf("uuid length = %d, want 256", len(info.UUID))
	}
}

func TestParseMetadataAbsentSerials(t *testing.T) {
	for _, serial := range []int64{0, -1, -4294967296} {
		info, err := parseMetadata(bytes.NewReader(testsupport.DeviceMetadata(t, 1, 0, serial)))
		if err != nil {
			t.Fatalf("parseMetadata(serial=%d): %v", serial, err)
		}
		if info.SerialNumber != "" {
			t.Errorf("serial %d should read as absent, got %q", serial, info.SerialNumber)
		}
	}
}

func TestParseMetadataUnsupportedVersion(t *testing.T) {
	buf := testsupport.DeviceMetadata(t, 1, 0, 0)
	buf[0] = 9

	_, err := parseMetadata(bytes.NewReader(buf))
	var unsupported *UnsupportedVersionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if unsupported.Version != 9 {
		t.Errorf("reported version = %d, want 9", unsupported.Version)
	}
}

func TestParseMetadataTruncated(t *testing.T) {
	if _, err := parseMetadata(bytes.NewReader([]byte{1, 0, 0})); err == nil {
		t.Fatal("expected error for truncated metadata")
	}
}

func TestInfoRequiresConnection(t *testing.T) {
	d := NewDriver(nil)
	if _, err := d.Info(); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestInfoReadsMountedPartition(t *testing.T) {
	mount := testsupport.NewDeviceTree(t)

	d := NewDriver(nil)
	d.SetConnected(mount)
	t.Cleanup(d.SetDisconnected)

	info, err := d.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.TotalBytes == 0 {
		t.Error("expected non-zero partition size")
	}
	if info.FirmwareMajor != 2 {
		t.Errorf("firmware major = %d, want 2", info.FirmwareMajor)
	}
}
