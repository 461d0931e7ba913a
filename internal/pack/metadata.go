package pack

import (
	"strings"

	"github.com/google/uuid"
)

// Metadata is the cheap partial-read product of a format reader: pack
// identity and display fields without the node graph or asset bytes.
type Metadata struct {
	UUID        string
	Version     int16
	Title       string
	Description string
	Thumbnail   []byte
	SectorSize  int
	NightMode   bool
}

// ValidUUID reports whether s parses as a canonical UUID.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FolderName derives the device content folder for a pack UUID: the
// last 8 hex characters of the hyphen-stripped canonical string, upper
// cased. This is the device firmware's content-addressing scheme.
func FolderName(packUUID string) string {
	stripped := strings.ReplaceAll(packUUID, "-", "")
	if len(stripped) > 8 {
		stripped = stripped[len(stripped)-8:]
	}
	return strings.ToUpper(stripped)
}
