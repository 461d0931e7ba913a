package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fabula/internal/fileutil"
	"fabula/internal/format"
	"fabula/internal/logging"
	"fabula/internal/metadata"
	"fabula/internal/pack"
)

// ErrNotAPack rejects library paths that are not in any recognized
// pack format.
var ErrNotAPack = errors.New("not a recognized pack format")

// Entry is one stored representation of a pack.
type Entry struct {
	// Name is the path relative to the library root.
	Name      string
	Path      string
	Format    format.PackFormat
	Timestamp time.Time
	SizeBytes int64
	Metadata  *pack.Metadata
}

// Group collects every stored representation of one pack UUID,
// newest first.
type Group struct {
	UUID    string
	Entries []Entry
	// Enriched is the joined database record, nil when the pack has
	// never been enriched.
	Enriched *metadata.PackMetadata
}

// Library scans and mutates the pack library directory.
type Library struct {
	dir    string
	store  *metadata.Store
	logger *slog.Logger
}

// New creates a library over dir. The metadata store is optional;
// without it listings simply carry no enrichment.
func New(dir string, store *metadata.Store, logger *slog.Logger) *Library {
	return &Library{
		dir:    dir,
		store:  store,
		logger: logging.NewComponentLogger(logger, "library"),
	}
}

// Dir returns the library root.
func (l *Library) Dir() string { return l.dir }

// Path resolves a library-relative name, rejecting escapes from the
// library root.
func (l *Library) Path(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid pack name %q", name)
	}
	return filepath.Join(l.dir, cleaned), nil
}

// Packs lists every pack in the library, grouped by UUID. Entries in
// each group are ordered newest first, and groups are ordered by the
// modification time of their newest entry, newest first. Unreadable
// entries are skipped with a warning rather than failing the whole
// listing.
func (l *Library) Packs(ctx context.Context) ([]Group, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}

	byUUID := make(map[string][]Entry)
	for _, dirent := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(l.dir, dirent.Name())
		f := format.FromPath(path)
		if f == format.None {
			continue
		}

		entry, err := l.readEntry(dirent.Name(), path, f)
		if err != nil {
			l.logger.Warn("skipping unreadable pack",
				logging.String("name", dirent.Name()),
				logging.Error(err))
			continue
		}
		byUUID[entry.Metadata.UUID] = append(byUUID[entry.Metadata.UUID], *entry)
	}

	groups := make([]Group, 0, len(byUUID))
	for id, packEntries := range byUUID {
		sort.Slice(packEntries, func(i, j int) bool {
			return packEntries[i].Timestamp.After(packEntries[j].Timestamp)
		})
		g := Group{UUID: id, Entries: packEntries}
		if l.store != nil {
			enriched, err := l.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			g.Enriched = enriched
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Entries[0].Timestamp.After(groups[j].Entries[0].Timestamp)
	})
	return groups, nil
}

// readEntry performs the cheap metadata read for one library path and,
// for archives carrying display metadata, refreshes the enrichment
// database so other formats of the same pack inherit it.
func (l *Library) readEntry(name, path string, f format.PackFormat) (*Entry, error) {
	meta, err := f.Reader().ReadMetadata(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var size int64
	if info.IsDir() {
		if size, err = fileutil.TreeSize(path); err != nil {
			return nil, err
		}
	} else {
		size = info.Size()
	}

	if l.store != nil && f == format.Archive && meta.Title != "" {
		err := l.store.Put(context.Background(), metadata.PackMetadata{
			UUID:        meta.UUID,
			Title:       meta.Title,
			Description: meta.Description,
			Thumbnail:   meta.Thumbnail,
		})
		if err != nil {
			l.logger.Warn("failed to refresh pack enrichment",
				logging.String("uuid", meta.UUID),
				logging.Error(err))
		}
	}

	return &Entry{
		Name:      name,
		Path:      path,
		Format:    f,
		Timestamp: info.ModTime(),
		SizeBytes: size,
		Metadata:  meta,
	}, nil
}

// ReadMetadata reads the display metadata for one library pack by
// relative name.
func (l *Library) ReadMetadata(name string) (*pack.Metadata, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	f := format.FromPath(path)
	if f == format.None {
		return nil, ErrNotAPack
	}
	return f.Reader().ReadMetadata(path)
}

// Add moves a pack file into the library, replacing any existing entry
// with the same base name. It returns the library-relative name.
func (l *Library) Add(srcPath string) (string, error) {
	f := format.FromPath(srcPath)
	if f == format.None {
		return "", ErrNotAPack
	}
	if _, err := f.Reader().ReadMetadata(srcPath); err != nil {
		return "", fmt.Errorf("validate pack: %w", err)
	}

	name := filepath.Base(srcPath)
	dest := filepath.Join(l.dir, name)
	if err := fileutil.RemoveTree(dest); err != nil {
		return "", fmt.Errorf("replace existing pack: %w", err)
	}
	if err := movePath(srcPath, dest); err != nil {
		return "", fmt.Errorf("move pack into library: %w", err)
	}
	l.logger.Info("pack added to library",
		logging.String("name", name),
		logging.String("format", f.Label()))
	return name, nil
}

// Delete removes a pack file or folder from the library.
func (l *Library) Delete(name string) error {
	path, err := l.Path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("pack %s: %w", name, err)
	}
	if err := fileutil.RemoveTree(path); err != nil {
		return fmt.Errorf("delete pack: %w", err)
	}
	l.logger.Info("pack deleted from library", logging.String("name", name))
	return nil
}

// movePath renames src to dest, falling back to copy-and-remove when
// the rename crosses filesystems.
func movePath(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := copyDir(src, dest); err != nil {
			return err
		}
	} else {
		if err := fileutil.CopyFile(src, dest); err != nil {
			return err
		}
	}
	return fileutil.RemoveTree(src)
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyDir(from, to); err != nil {
				return err
			}
			continue
		}
		if err := fileutil.CopyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}
