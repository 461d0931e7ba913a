package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"fabula/internal/pack"
)

// DeviceMetadata builds a device metadata file image with the given
// firmware version and serial.
func DeviceMetadata(t testing.TB, major, minor uint16, serial int64) []byte {
	t.Helper()

	buf := make([]byte, 512)
	binary.LittleEndian.PutUint16(buf[0:], 1)
	binary.LittleEndian.PutUint16(buf[6:], major)
	binary.LittleEndian.PutUint16(buf[8:], minor)
	binary.BigEndian.PutUint64(buf[10:], uint64(serial))
	return buf
}

// NewDeviceTree lays out a fake mounted device partition: a metadata
// file, a pack index holding the given UUIDs, and a content folder per
// pack with a node index file. It returns the mount point.
func NewDeviceTree(t testing.TB, uuids ...string) string {
	t.Helper()

	mount := t.TempDir()
	if err := os.WriteFile(filepath.Join(mount, ".md"), DeviceMetadata(t, 2, 6, 12345), 0o644); err != nil {
		t.Fatalf("write device metadata: %v", err)
	}

	var index []byte
	for _, id := range uuids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("parse uuid %s: %v", id, err)
		}
		index = append(index, parsed[:]...)
		WritePackContent(t, mount, id)
	}
	if err := os.WriteFile(filepath.Join(mount, ".pi"), index, 0o644); err != nil {
		t.Fatalf("write pack index: %v", err)
	}
	return mount
}

// WritePackContent creates the content folder for one pack UUID with a
// minimal node index file and a small asset payload.
func WritePackContent(t testing.TB, mount, id string) {
	t.Helper()

	dir := filepath.Join(mount, ".content", pack.FolderName(id))
	ni := make([]byte, 512)
	binary.LittleEndian.PutUint16(ni[0:], 1)
	binary.LittleEndian.PutUint16(ni[2:], 3)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir content folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ni"), ni, 0o644); err != nil {
		t.Fatalf("write node index: %v", err)
	}
	WriteFile(t, filepath.Join(dir, "sf", "00000000"), 2048)
}
