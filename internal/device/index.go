package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"fabula/internal/fileutil"
	"fabula/internal/logging"
	"fabula/internal/pack"
)

// PackInfo describes one installed pack as seen from the device index.
type PackInfo struct {
	UUID       string
	FolderName string
	Version    int16
	SizeBytes  int64
}

// ListPacks reads the pack index and, for each installed pack, its
// node index version and folder size. Index order is the device's
// display order.
func (d *Driver) ListPacks() ([]PackInfo, error) {
	mount, _, err := d.requireMount()
	if err != nil {
		return nil, err
	}

	uuids, err := readPackIndex(mount)
	if err != nil {
		return nil, err
	}

	packs := make([]PackInfo, 0, len(uuids))
	for _, id := range uuids {
		folder := pack.FolderName(id)
		folderPath := filepath.Join(mount, contentFolder, folder)

		version, err := readNodeIndexVersion(filepath.Join(folderPath, nodeIndexFile))
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", id, err)
		}
		size, err := fileutil.TreeSize(folderPath)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", id, err)
		}
		packs = append(packs, PackInfo{
			UUID:       id,
			FolderName: folder,
			Version:    version,
			SizeBytes:  size,
		})
	}
	return packs, nil
}

// ReorderPacks rewrites the pack index so its order matches the
// position of each UUID in the requested list. Every requested UUID
// must already be on the device; otherwise the index is left
// untouched.
func (d *Driver) ReorderPacks(uuids []string) error {
	mount, lock, err := d.requireMount()
	if err != nil {
		return err
	}

	return d.withIndexLock(lock, func() error {
		current, err := readPackIndex(mount)
		if err != nil {
			return err
		}

		position := make(map[string]int, len(uuids))
		for i, id := range uuids {
			position[id] = i
		}
		onDevice := make(map[string]bool, len(current))
		for _, id := range current {
			onDevice[id] = true
		}
		var missing []string
		for _, id := range uuids {
			if !onDevice[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return &PacksMismatchError{Missing: missing}
		}

		sort.SliceStable(current, func(i, j int) bool {
			pi, iOK := position[current[i]]
			pj, jOK := position[current[j]]
			if !iOK || !jOK {
				// UUIDs absent from the request keep their place
				// ahead of reordered ones.
				return !iOK && jOK
			}
			return pi < pj
		})
		d.logger.Debug("reordering pack index", logging.Int("packs", len(current)))
		return writePackIndex(mount, current)
	})
}

// DeletePack removes a UUID from the pack index. The pack's content
// folder is deliberately left in place: the index is the device's
// visible catalog and stray folders are tolerated.
func (d *Driver) DeletePack(id string) error {
	mount, lock, err := d.requireMount()
	if err != nil {
		return err
	}

	return d.withIndexLock(lock, func() error {
		current, err := readPackIndex(mount)
		if err != nil {
			return err
		}
		out := current[:0]
		found := false
		for _, existing := range current {
			if existing == id {
				found = true
				continue
			}
			out = append(out, existing)
		}
		if !found {
			return ErrPackNotFound
		}
		d.logger.Info("removing pack from index", logging.String("uuid", id))
		return writePackIndex(mount, out)
	})
}

// AddPackToIndex appends a UUID to the pack index. A UUID already
// present is a no-op success, which keeps repeated uploads safe.
func (d *Driver) AddPackToIndex(id string) error {
	mount, lock, err := d.requireMount()
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("pack uuid: %w", err)
	}

	return d.withIndexLock(lock, func() error {
		current, err := readPackIndex(mount)
		if err != nil {
			return err
		}
		for _, existing := range current {
			if existing == id {
				return nil
			}
		}
		d.logger.Info("adding pack to index", logging.String("uuid", id))
		return writePackIndex(mount, append(current, id))
	})
}

// withIndexLock serializes an index read-modify-write cycle against
// concurrent mutations in this process and others.
func (d *Driver) withIndexLock(lock *flock.Flock, fn func() error) error {
	d.indexMu.Lock()
	defer d.indexMu.Unlock()

	if lock != nil {
		if err := lock.Lock(); err != nil {
			return fmt.Errorf("acquire index lock: %w", err)
		}
		defer func() {
			_ = lock.Unlock()
		}()
	}
	return fn()
}

// readPackIndex decodes the index file: a flat sequence of 16-byte
// UUIDs, big-endian halves, no header or terminator. A missing index
// file means an empty device.
func readPackIndex(mount string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(mount, packIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pack index: %w", err)
	}
	if len(data)%16 != 0 {
		return nil, fmt.Errorf("pack index length %d is not a multiple of 16", len(data))
	}

	uuids := make([]string, 0, len(data)/16)
	for off := 0; off < len(data); off += 16 {
		id, err := uuid.FromBytes(data[off : off+16])
		if err != nil {
			return nil, fmt.Errorf("pack index entry %d: %w", off/16, err)
		}
		uuids = append(uuids, id.String())
	}
	return uuids, nil
}

// writePackIndex rewrites the index file in full. Truncate-and-rewrite
// is the only acceptable mode; the file is never patched in place.
func writePackIndex(mount string, uuids []string) error {
	var buf bytes.Buffer
	for _, id := range uuids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("pack index entry %q: %w", id, err)
		}
		buf.Write(parsed[:])
	}
	if err := os.WriteFile(filepath.Join(mount, packIndexFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pack index: %w", err)
	}
	return nil
}

// readNodeIndexVersion reads the first 512 bytes of a pack's node
// index file and extracts the version field at byte offset 2,
// little-endian.
func readNodeIndexVersion(path string) (int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open node index: %w", err)
	}
	defer f.Close()

	block := make([]byte, 512)
	if _, err := io.ReadFull(f, block); err != nil {
		return 0, fmt.Errorf("read node index block: %w", err)
	}
	return int16(binary.LittleEndian.Uint16(block[2:])), nil
}
