package disktier

import (
	"bytes"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mustCreateChunk(t, dir, 5, []string{"alpha", "bravo", "charlie"}, 1000)

	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var buf bytes.Buffer
	if err := dt.ExportChunk(&buf, 5); err != nil {
		t.Fatalf("ExportChunk: %v", err)
	}

	importDir := t.TempDir()
	id, err := ImportChunk(&buf, importDir)
	if err != nil {
		t.Fatalf("ImportChunk: %v", err)
	}
	if id != 5 {
		t.Errorf("expected imported id 5, got %d", id)
	}

	imported, err := Open(importDir, nil)
	if err != nil {
		t.Fatalf("Open imported dir: %v", err)
	}
	if imported.ChunkCount() != 1 {
		t.Fatalf("expected 1 chunk in imported dir, got %d", imported.ChunkCount())
	}

	for i, want := range []string{"alpha", "bravo", "charlie"} {
		got, err := imported.Read(5, i)
		if err != nil {
			t.Fatalf("Read(%d): %v", i, err)
		}
		if string(got) != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestImportRefusesExistingID(t *testing.T) {
	dir := t.TempDir()
	mustCreateChunk(t, dir, 2, []string{"x"}, 10)

	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var buf bytes.Buffer
	if err := dt.ExportChunk(&buf, 2); err != nil {
		t.Fatalf("ExportChunk: %v", err)
	}

	if _, err := ImportChunk(&buf, dir); err != ErrImportIDExists {
		t.Errorf("expected ErrImportIDExists, got %v", err)
	}
}

func TestExportChunkNotFound(t *testing.T) {
	dir := t.TempDir()
	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var buf bytes.Buffer
	if err := dt.ExportChunk(&buf, 99); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
