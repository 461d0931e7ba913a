package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fabula/internal/pack"
)

// PackFormat identifies one of the three on-disk pack representations.
type PackFormat string

const (
	// None marks a path that is not a recognizable pack.
	None PackFormat = ""
	// Archive is the zip-based interchange bundle.
	Archive PackFormat = "archive"
	// Raw is the single-file sector binary.
	Raw PackFormat = "raw"
	// FS is the device-native multi-file folder.
	FS PackFormat = "fs"
)

// Reader decodes packs from disk.
type Reader interface {
	// Read fully decodes the pack at path, including asset payloads.
	Read(path string) (*pack.Pack, error)
	// ReadMetadata performs a cheap partial read: identity and display
	// metadata without the node graph or asset bytes.
	ReadMetadata(path string) (*pack.Metadata, error)
}

// Writer serializes packs to disk. When allowEnriched is false,
// enrichment metadata is omitted from the output even if present in
// memory.
type Writer interface {
	Write(p *pack.Pack, dest string, allowEnriched bool) (string, error)
}

// Extension returns the file extension bound to the format. FS packs
// are directories and have none.
func (f PackFormat) Extension() string {
	switch f {
	case Archive:
		return ".zip"
	case Raw:
		return ".pack"
	default:
		return ""
	}
}

// Label returns the display name used in listings.
func (f PackFormat) Label() string {
	switch f {
	case Archive:
		return "archive"
	case Raw:
		return "raw"
	case FS:
		return "fs"
	default:
		return "unknown"
	}
}

// Reader returns the decoder bound to the format.
func (f PackFormat) Reader() Reader {
	switch f {
	case Archive:
		return archiveCodec{}
	case Raw:
		return rawCodec{}
	case FS:
		return fsCodec{}
	default:
		return nil
	}
}

// Writer returns the encoder bound to the format.
func (f PackFormat) Writer() Writer {
	switch f {
	case Archive:
		return archiveCodec{}
	case Raw:
		return rawCodec{}
	case FS:
		return fsCodec{}
	default:
		return nil
	}
}

// FromPath determines the pack format from a path's extension or
// shape. Directories are FS packs when they hold a node index file.
// Unknown paths yield None.
func FromPath(path string) PackFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return Archive
	case ".pack":
		return Raw
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if _, err := os.Stat(filepath.Join(path, nodeIndexFile)); err == nil {
			return FS
		}
	}
	return None
}

// Parse maps a user-supplied format name to a PackFormat.
func Parse(name string) (PackFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "archive", "zip":
		return Archive, nil
	case "raw", "binary", "pack":
		return Raw, nil
	case "fs", "device":
		return FS, nil
	default:
		return None, fmt.Errorf("unknown pack format %q", name)
	}
}
