package device

import (
	"errors"
	"testing"

	"fabula/internal/testsupport"
)

const (
	uuidA = "11111111-1111-1111-1111-aaaaaaaaaaaa"
	uuidB = "22222222-2222-2222-2222-bbbbbbbbbbbb"
	uuidC = "33333333-3333-3333-3333-cccccccccccc"
)

func connectedDriver(t *testing.T, uuids ...string) *Driver {
	t.Helper()

	d := NewDriver(nil)
	d.SetConnected(testsupport.NewDeviceTree(t, uuids...))
	t.Cleanup(d.SetDisconnected)
	return d
}

func indexOrder(t *testing.T, d *Driver) []string {
	t.Helper()

	packs, err := d.ListPacks()
	if err != nil {
		t.Fatalf("ListPacks: %v", err)
	}
	order := make([]string, len(packs))
	for i, p := range packs {
		order[i] = p.UUID
	}
	return order
}

func TestListPacks(t *testing.T) {
	d := connectedDriver(t, uuidA, uuidB)

	packs, err := d.ListPacks()
	if err != nil {
		t.Fatalf("ListPacks: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("pack count = %d, want 2", len(packs))
	}
	if packs[0].UUID != uuidA || packs[1].UUID != uuidB {
		t.Errorf("index order = %v", packs)
	}
	if packs[0].FolderName != "AAAAAAAA" {
		t.Errorf("folder name = %s, want AAAAAAAA", packs[0].FolderName)
	}
	if packs[0].Version != 3 {
		t.Errorf("node index version = %d, want 3", packs[0].Version)
	}
	if packs[0].SizeBytes <= 0 {
		t.Error("expected positive content folder size")
	}
}

func TestListPacksEmptyDevice(t *testing.T) {
	d := connectedDriver(t)

	packs, err := d.ListPacks()
	if err != nil {
		t.Fatalf("ListPacks: %v", err)
	}
	if len(packs) != 0 {
		t.Errorf("expected empty listing, got %v", packs)
	}
}

func TestReorderPacks(t *testing.T) {
	d := connectedDriver(t, uuidA, uuidB, uuidC)

	if err := d.ReorderPacks([]string{uuidC, uuidA, uuidB}); err != nil {
		t.Fatalf("ReorderPacks: %v", err)
	}

	got := indexOrder(t, d)
	want := []string{uuidC, uuidA, uuidB}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestReorderPacksPartialRequest(t *testing.T) {
	d := connectedDriver(t, uuidA, uuidB, uuidC)

	// UUIDs left out of the request keep their place ahead of the
	// reordered ones.
	if err := d.ReorderPacks([]string{uuidC, uuidB}); err != nil {
		t.Fatalf("ReorderPacks: %v", err)
	}

	got := indexOrder(t, d)
	want := []string{uuidA, uuidC, uuidB}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestReorderPacksMismatchLeavesIndexUntouched(t *testing.T) {
	d := connectedDriver(t, uuidA, uuidB)

	err := d.ReorderPacks([]string{uuidA, uuidC})
	var mismatch *PacksMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected PacksMismatchError, got %v", err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != uuidC {
		t.Errorf("missing = %v, want [%s]", mismatch.Missing, uuidC)
	}

	got := indexOrder(t, d)
	if got[0] != uuidA || got[1] != uuidB {
		t.Errorf("index changed after failed reorder: %v", got)
	}
}

func TestDeletePack(t *testing.T) {
	d := connectedDriver(t, uuidA, uuidB)

	if err := d.DeletePack(uuidA); err != nil {
		t.Fatalf("DeletePack: %v", err)
	}

	got := indexOrder(t, d)
	if len(got) != 1 || got[0] != uuidB {
		t.Errorf("index after delete = %v, want [%s]", got, uuidB)
	}

	if err := d.DeletePack(uuidA); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}

func TestAddPackToIndexIsIdempotent(t *testing.T) {
	d := connectedDriver(t, uuidA)
	testsupport.WritePackContent(t, d.MountPoint(), uuidB)

	if err := d.AddPackToIndex(uuidB); err != nil {
		t.Fatalf("AddPackToIndex: %v", err)
	}
	if err := d.AddPackToIndex(uuidB); err != nil {
		t.Fatalf("repeated AddPackToIndex: %v", err)
	}

	got := indexOrder(t, d)
	if len(got) != 2 || got[1] != uuidB {
		t.Errorf("index = %v, want [%s %s]", got, uuidA, uuidB)
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	d := NewDriver(nil)

	if _, err := d.ListPacks(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("ListPacks: expected ErrNoDevice, got %v", err)
	}
	if err := d.DeletePack(uuidA); !errors.Is(err, ErrNoDevice) {
		t.Errorf("DeletePack: expected ErrNoDevice, got %v", err)
	}
	if err := d.ReorderPacks([]string{uuidA}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("ReorderPacks: expected ErrNoDevice, got %v", err)
	}
}
