package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("expected exists=false for a missing file")
	}
	if cfg.Device.VendorID != "0c45" || cfg.Device.ProductID != "6820" {
		t.Errorf("unexpected default device identity %s:%s", cfg.Device.VendorID, cfg.Device.ProductID)
	}
	if !strings.HasSuffix(cfg.Paths.LibraryDir, filepath.Join("fabula", "library")) {
		t.Errorf("library dir not defaulted: %s", cfg.Paths.LibraryDir)
	}
	if !strings.HasSuffix(cfg.Paths.DataDir, filepath.Join("fabula", "data")) {
		t.Errorf("data dir not defaulted: %s", cfg.Paths.DataDir)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_dir = "` + filepath.Join(dir, "lib") + `"
tmp_dir = "` + filepath.Join(dir, "tmp") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[device]
vendor_id = " 0C45 "
product_id = "6820"

[codec]
workers = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Error("expected exists=true")
	}
	if cfg.Device.VendorID != "0c45" {
		t.Errorf("vendor id not normalized: %q", cfg.Device.VendorID)
	}
	if cfg.Codec.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Codec.Workers)
	}
	if cfg.Paths.LibraryDir != filepath.Join(dir, "lib") {
		t.Errorf("library dir = %s", cfg.Paths.LibraryDir)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_dir = "` + filepath.Join(dir, "same") + `"
tmp_dir = "` + filepath.Join(dir, "same") + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for identical library and tmp dirs")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Paths.LibraryDir = "/srv/library"
	cfg.Paths.TmpDir = "/srv/tmp"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg.Codec.Workers = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative workers")
	}
	cfg.Codec.Workers = 0

	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}

	// The sample must itself be a loadable config.
	if _, _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}

	if err := WriteSample(path); err == nil {
		t.Error("expected error when the file already exists")
	}
}

func TestFFmpegBinaryDefault(t *testing.T) {
	cfg := Default()
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Error("expected bare binary names by default")
	}
	cfg.Codec.FFmpeg = "/opt/ffmpeg"
	if cfg.FFmpegBinary() != "/opt/ffmpeg" {
		t.Error("expected configured binary to win")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.LibraryDir = filepath.Join(dir, "library")
	cfg.Paths.TmpDir = filepath.Join(dir, "tmp")
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.LibraryDir, cfg.Paths.TmpDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("directory %s missing", d)
		}
	}
}
