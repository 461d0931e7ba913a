package device

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"fabula/internal/fileutil"
	"fabula/internal/logging"
	"fabula/internal/pack"
)

// UploadPack copies a firmware-layout pack folder onto the device and
// registers its UUID in the pack index. A content folder already on
// the device counts as an earlier successful upload; only the index
// registration is repeated.
func (d *Driver) UploadPack(ctx context.Context, id, srcDir string) error {
	mount, _, err := d.requireMount()
	if err != nil {
		return err
	}

	dest := filepath.Join(mount, contentFolder, pack.FolderName(id))
	if _, err := os.Stat(dest); err == nil {
		d.logger.Info("pack content already on device",
			logging.String("uuid", id))
		err := d.AddPackToIndex(id)
		d.publishOutcome(id, err)
		return err
	}

	size, err := fileutil.TreeSize(srcDir)
	if err != nil {
		return fmt.Errorf("measure pack: %w", err)
	}
	_, free, err := partitionSpace(mount)
	if err != nil {
		return fmt.Errorf("read partition space: %w", err)
	}
	if uint64(size) > free {
		return ErrInsufficientSpace
	}

	d.logger.Info("uploading pack",
		logging.String("uuid", id),
		logging.Int64("bytes", size))
	if err := d.copyTree(ctx, id, srcDir, dest, size); err != nil {
		d.publishOutcome(id, err)
		return err
	}
	if err := d.AddPackToIndex(id); err != nil {
		d.publishOutcome(id, err)
		return err
	}
	d.publishOutcome(id, nil)
	return nil
}

// DownloadPack copies one installed pack's content folder from the
// device into destDir, under the pack's folder name. An existing
// destination folder counts as an earlier successful download.
func (d *Driver) DownloadPack(ctx context.Context, id, destDir string) (string, error) {
	mount, _, err := d.requireMount()
	if err != nil {
		return "", err
	}

	uuids, err := readPackIndex(mount)
	if err != nil {
		return "", err
	}
	found := false
	for _, existing := range uuids {
		if existing == id {
			found = true
			break
		}
	}
	if !found {
		return "", ErrPackNotFound
	}

	folder := pack.FolderName(id)
	src := filepath.Join(mount, contentFolder, folder)
	dest := filepath.Join(destDir, folder)
	if _, err := os.Stat(dest); err == nil {
		d.logger.Info("pack already downloaded",
			logging.String("uuid", id))
		d.publishOutcome(id, nil)
		return dest, nil
	}

	size, err := fileutil.TreeSize(src)
	if err != nil {
		return "", fmt.Errorf("measure pack: %w", err)
	}
	d.logger.Info("downloading pack",
		logging.String("uuid", id),
		logging.Int64("bytes", size))
	if err := d.copyTree(ctx, id, src, dest, size); err != nil {
		d.publishOutcome(id, err)
		return "", err
	}
	d.publishOutcome(id, nil)
	return dest, nil
}

func (d *Driver) publishOutcome(id string, err error) {
	d.events.publishComplete(TransferComplete{
		ID:      id,
		Success: err == nil,
		Err:     err,
	})
}

// copyTree copies every regular file under src into dest, preserving
// relative paths and publishing cumulative progress as bytes move.
func (d *Driver) copyTree(ctx context.Context, id, src, dest string, total int64) error {
	start := time.Now()
	var transferred int64

	err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		n, err := d.copyFile(ctx, path, target)
		transferred += n
		if err != nil {
			return err
		}
		d.events.publishProgress(TransferProgress{
			ID:          id,
			Transferred: transferred,
			Total:       total,
			Speed:       averageSpeed(transferred, time.Since(start)),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("transfer pack %s: %w", id, err)
	}
	return nil
}

// copyFile copies one file, honoring context cancellation between
// chunks. The byte count is returned even on failure so cumulative
// progress stays truthful.
func (d *Driver) copyFile(ctx context.Context, src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var written int64
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			wn, writeErr := out.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, readErr
		}
	}
	return written, out.Sync()
}

func averageSpeed(transferred int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(transferred) / elapsed.Seconds()
}
