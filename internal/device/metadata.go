package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// metadataFormatVersion is the only device metadata layout this driver
// understands.
const metadataFormatVersion = 1

// Serial numbers the firmware writes when no serial was provisioned.
const (
	serialEmpty   = 0
	serialErased  = -1
	serialNoSPI   = -4294967296 // 0xFFFFFFFF00000000
	serialDecimal = 14          // zero-padded display width
)

// Info is a snapshot of the device metadata file plus the partition's
// space figures.
type Info struct {
	FirmwareMajor uint16
	FirmwareMinor uint16
	// SerialNumber is empty when the firmware holds no provisioned
	// serial.
	SerialNumber string
	UUID         []byte

	TotalBytes uint64
	UsedBytes  uint64
}

// Info parses the device metadata file on the mounted partition. The
// layout is a hard firmware contract; see parseMetadata for the byte
// offsets.
func (d *Driver) Info() (*Info, error) {
	mount, _, err := d.requireMount()
	if err != nil {
		return nil, err
	}

	mdPath := filepath.Join(mount, metadataFile)
	f, err := os.Open(mdPath)
	if err != nil {
		return nil, fmt.Errorf("open device metadata: %w", err)
	}
	defer f.Close()

	info, err := parseMetadata(f)
	if err != nil {
		return nil, err
	}

	total, free, err := partitionSpace(mount)
	if err != nil {
		return nil, fmt.Errorf("read partition space: %w", err)
	}
	info.TotalBytes = total
	info.UsedBytes = total - free
	return info, nil
}

// parseMetadata decodes the fixed binary layout of the device metadata
// file:
//
//	0   uint16 LE   format version (must be 1)
//	2   4 bytes     reserved
//	6   uint16 LE   firmware major
//	8   uint16 LE   firmware minor
//	10  int64  BE   serial number
//	18  238 bytes   reserved
//	256 256 bytes   device UUID
func parseMetadata(r io.Reader) (*Info, error) {
	header := make([]byte, 18)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read device metadata header: %w", err)
	}

	version := binary.LittleEndian.Uint16(header[0:])
	if version != metadataFormatVersion {
		return nil, &UnsupportedVersionError{Version: version}
	}

	info := &Info{
		FirmwareMajor: binary.LittleEndian.Uint16(header[6:]),
		FirmwareMinor: binary.LittleEndian.Uint16(header[8:]),
	}

	serial := int64(binary.BigEndian.Uint64(header[10:]))
	if serial != serialEmpty && serial != serialErased && serial != serialNoSPI {
		info.SerialNumber = fmt.Sprintf("%0*d", serialDecimal, serial)
	}

	if _, err := io.CopyN(io.Discard, r, 238); err != nil {
		return nil, fmt.Errorf("skip reserved metadata: %w", err)
	}
	uuid := make([]byte, 256)
	if _, err := io.ReadFull(r, uuid); err != nil {
		return nil, fmt.Errorf("read device uuid: %w", err)
	}
	info.UUID = uuid
	return info, nil
}

// partitionSpace reports total and available bytes of the filesystem
// holding path.
func partitionSpace(path string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize)
	return uint64(st.Blocks) * bsize, uint64(st.Bavail) * bsize, nil
}
