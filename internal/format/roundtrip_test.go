package format

import (
	"path/filepath"
	"testing"

	"fabula/internal/pack"
	"fabula/internal/testsupport"
)

// assertSamePack compares node structure and transition shape between
// the authored pack and a decoded one.
func assertSamePack(t *testing.T, want, got *pack.Pack) {
	t.Helper()

	if got.UUID != want.UUID {
		t.Errorf("uuid = %s, want %s", got.UUID, want.UUID)
	}
	if got.Version != want.Version {
		t.Errorf("version = %d, want %d", got.Version, want.Version)
	}
	if got.NightMode != want.NightMode {
		t.Errorf("night mode = %v, want %v", got.NightMode, want.NightMode)
	}
	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("node count = %d, want %d", len(got.Nodes), len(want.Nodes))
	}

	index := make(map[*pack.StageNode]int, len(want.Nodes))
	for i, node := range want.Nodes {
		index[node] = i
	}
	gotIndex := make(map[*pack.StageNode]int, len(got.Nodes))
	for i, node := range got.Nodes {
		gotIndex[node] = i
	}

	for i, wantNode := range want.Nodes {
		gotNode := got.Nodes[i]
		if !wantNode.Same(gotNode) {
			t.Errorf("node %d differs structurally", i)
		}
		assertSameTransition(t, i, "ok", wantNode.OK, gotNode.OK, index, gotIndex)
		assertSameTransition(t, i, "home", wantNode.Home, gotNode.Home, index, gotIndex)
	}
}

func assertSameTransition(t *testing.T, node int, kind string, want, got *pack.Transition, wantIndex, gotIndex map[*pack.StageNode]int) {
	t.Helper()

	if (want == nil) != (got == nil) {
		t.Errorf("node %d %s transition presence mismatch", node, kind)
		return
	}
	if want == nil {
		return
	}
	if want.OptionIndex != got.OptionIndex {
		t.Errorf("node %d %s option = %d, want %d", node, kind, got.OptionIndex, want.OptionIndex)
	}
	if wantIndex[want.Target] != gotIndex[got.Target] {
		t.Errorf("node %d %s targets node %d, want %d", node, kind, gotIndex[got.Target], wantIndex[want.Target])
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	src := testsupport.SamplePack(t)
	dest := filepath.Join(t.TempDir(), "sample.zip")

	written, err := Archive.Writer().Write(src, dest, true)
	if err != nil {
		t.Fatalf("write archive: %v", err)
	}

	got, err := Archive.Reader().Read(written)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	assertSamePack(t, src, got)

	if got.Enriched == nil || got.Enriched.Title != src.Enriched.Title {
		t.Error("expected enrichment metadata to survive the round trip")
	}
}

func TestArchiveWriteStripsEnrichment(t *testing.T) {
	src := testsupport.SamplePack(t)
	dest := filepath.Join(t.TempDir(), "plain.zip")

	if _, err := Archive.Writer().Write(src, dest, false); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	got, err := Archive.Reader().Read(dest)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if got.Enriched != nil && got.Enriched.Title != "" {
		t.Errorf("expected no enrichment, got title %q", got.Enriched.Title)
	}
}

func TestRawRoundTrip(t *testing.T) {
	src := testsupport.SamplePack(t)
	src.NightMode = true
	dest := filepath.Join(t.TempDir(), "sample.pack")

	written, err := Raw.Writer().Write(src, dest, true)
	if err != nil {
		t.Fatalf("write raw: %v", err)
	}

	got, err := Raw.Reader().Read(written)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	assertSamePack(t, src, got)

	if got.SectorSize <= 0 {
		t.Error("expected sector size to be derived from file size")
	}
	if got.Enriched == nil || got.Enriched.Title != src.Enriched.Title {
		t.Error("expected enrichment metadata to survive the round trip")
	}
}

func TestFSRoundTrip(t *testing.T) {
	src := testsupport.SamplePack(t)
	dest := filepath.Join(t.TempDir(), "sample")

	written, err := FS.Writer().Write(src, dest, true)
	if err != nil {
		t.Fatalf("write fs: %v", err)
	}

	got, err := FS.Reader().Read(written)
	if err != nil {
		t.Fatalf("read fs: %v", err)
	}
	assertSamePack(t, src, got)
}

func TestReadMetadata(t *testing.T) {
	src := testsupport.SamplePack(t)
	dir := t.TempDir()

	archivePath := filepath.Join(dir, "sample.zip")
	if _, err := Archive.Writer().Write(src, archivePath, true); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	meta, err := Archive.Reader().ReadMetadata(archivePath)
	if err != nil {
		t.Fatalf("read archive metadata: %v", err)
	}
	if meta.UUID != src.UUID {
		t.Errorf("uuid = %s, want %s", meta.UUID, src.UUID)
	}
	if meta.Title != src.Enriched.Title {
		t.Errorf("title = %q, want %q", meta.Title, src.Enriched.Title)
	}

	rawPath := filepath.Join(dir, "sample.pack")
	if _, err := Raw.Writer().Write(src, rawPath, true); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	meta, err = Raw.Reader().ReadMetadata(rawPath)
	if err != nil {
		t.Fatalf("read raw metadata: %v", err)
	}
	if meta.UUID != src.UUID || meta.Version != src.Version {
		t.Errorf("raw metadata = %+v", meta)
	}
	if meta.SectorSize <= 0 {
		t.Error("expected positive sector size")
	}

	fsPath := filepath.Join(dir, "sample")
	if _, err := FS.Writer().Write(src, fsPath, true); err != nil {
		t.Fatalf("write fs: %v", err)
	}
	meta, err = FS.Reader().ReadMetadata(fsPath)
	if err != nil {
		t.Fatalf("read fs metadata: %v", err)
	}
	if meta.UUID != src.UUID {
		t.Errorf("fs metadata uuid = %s, want %s", meta.UUID, src.UUID)
	}
}

func TestRawReadRejectsGarbage(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bad.pack")
	testsupport.WriteFile(t, dest, 2048)

	if _, err := Raw.Reader().Read(dest); err == nil {
		t.Fatal("expected error for garbage payload")
	}
}
