package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fabula/internal/pack"
	"fabula/internal/testsupport"
)

func TestUploadPack(t *testing.T) {
	d := connectedDriver(t)

	src := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(src, "ni"), 512)
	testsupport.WriteFile(t, filepath.Join(src, "rf", "00000000"), 4096)
	testsupport.WriteFile(t, filepath.Join(src, "sf", "00000000"), 8192)

	var progress []TransferProgress
	var completions []TransferComplete
	d.Events().SubscribeProgress(func(p TransferProgress) {
		progress = append(progress, p)
	})
	d.Events().SubscribeComplete(func(c TransferComplete) {
		completions = append(completions, c)
	})

	if err := d.UploadPack(context.Background(), uuidA, src); err != nil {
		t.Fatalf("UploadPack: %v", err)
	}

	// Three files, one progress event each, cumulative and increasing.
	if len(progress) != 3 {
		t.Fatalf("progress events = %d, want 3", len(progress))
	}
	total := int64(512 + 4096 + 8192)
	var last int64
	for i, p := range progress {
		if p.Transferred <= last {
			t.Errorf("event %d not strictly increasing: %d after %d", i, p.Transferred, last)
		}
		if p.Total != total {
			t.Errorf("event %d total = %d, want %d", i, p.Total, total)
		}
		last = p.Transferred
	}
	if last != total {
		t.Errorf("final transferred = %d, want %d", last, total)
	}

	if len(completions) != 1 || !completions[0].Success {
		t.Fatalf("completions = %+v, want one success", completions)
	}

	mount := d.MountPoint()
	if _, err := os.Stat(filepath.Join(mount, ".content", pack.FolderName(uuidA), "rf", "00000000")); err != nil {
		t.Errorf("uploaded asset missing: %v", err)
	}
	got := indexOrder(t, d)
	if len(got) != 1 || got[0] != uuidA {
		t.Errorf("index after upload = %v, want [%s]", got, uuidA)
	}
}

func TestUploadPackExistingContentOnlyReindexes(t *testing.T) {
	d := connectedDriver(t)
	testsupport.WritePackContent(t, d.MountPoint(), uuidA)

	var progress int
	d.Events().SubscribeProgress(func(TransferProgress) { progress++ })

	if err := d.UploadPack(context.Background(), uuidA, t.TempDir()); err != nil {
		t.Fatalf("UploadPack: %v", err)
	}
	if progress != 0 {
		t.Errorf("expected no byte transfer for existing content, saw %d events", progress)
	}
	got := indexOrder(t, d)
	if len(got) != 1 || got[0] != uuidA {
		t.Errorf("index = %v, want [%s]", got, uuidA)
	}
}

func TestUploadPackCancellation(t *testing.T) {
	d := connectedDriver(t)

	src := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(src, "ni"), 512)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var completions []TransferComplete
	d.Events().SubscribeComplete(func(c TransferComplete) {
		completions = append(completions, c)
	})

	err := d.UploadPack(ctx, uuidA, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(completions) != 1 || completions[0].Success {
		t.Errorf("completions = %+v, want one failure", completions)
	}
}

func TestDownloadPack(t *testing.T) {
	d := connectedDriver(t, uuidA)

	destDir := t.TempDir()
	dest, err := d.DownloadPack(context.Background(), uuidA, destDir)
	if err != nil {
		t.Fatalf("DownloadPack: %v", err)
	}
	if dest != filepath.Join(destDir, pack.FolderName(uuidA)) {
		t.Errorf("destination = %s", dest)
	}
	if _, err := os.Stat(filepath.Join(dest, "ni")); err != nil {
		t.Errorf("downloaded node index missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "sf", "00000000")); err != nil {
		t.Errorf("downloaded asset missing: %v", err)
	}
}

func TestDownloadPackUnknownUUID(t *testing.T) {
	d := connectedDriver(t, uuidA)

	if _, err := d.DownloadPack(context.Background(), uuidB, t.TempDir()); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}

func TestDownloadPackExistingDestination(t *testing.T) {
	d := connectedDriver(t, uuidA)

	destDir := t.TempDir()
	existing := filepath.Join(destDir, pack.FolderName(uuidA))
	if err := os.MkdirAll(existing, 0o755); err != nil {
		t.Fatalf("mkdir existing destination: %v", err)
	}

	var progress int
	d.Events().SubscribeProgress(func(TransferProgress) { progress++ })

	dest, err := d.DownloadPack(context.Background(), uuidA, destDir)
	if err != nil {
		t.Fatalf("DownloadPack: %v", err)
	}
	if dest != existing {
		t.Errorf("destination = %s, want %s", dest, existing)
	}
	if progress != 0 {
		t.Errorf("expected no byte transfer for existing destination, saw %d events", progress)
	}
}

func TestPendingWait(t *testing.T) {
	d := connectedDriver(t, uuidA)

	pending := d.ListPacksAsync()
	<-pending.Done()
	packs, err := pending.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(packs) != 1 || packs[0].UUID != uuidA {
		t.Errorf("async listing = %v", packs)
	}
}
