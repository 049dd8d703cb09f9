package disktier

import (
	"os"
	"path/filepath"
	"testing"

	"commitlog/internal/chunkio"
)

func mustCreateChunk(t *testing.T, dir string, id uint64, payloads []string, startTs uint64) {
	t.Helper()
	entries := make([]chunkio.Entry, len(payloads))
	for i, p := range payloads {
		entries[i] = chunkio.Entry{Payload: []byte(p), Timestamp: startTs + uint64(i)}
	}
	c, err := chunkio.Create(dir, id, entries)
	if err != nil {
		t.Fatalf("Create chunk %d: %v", id, err)
	}
	c.Close()
}

func TestOpenEmptyDir(t *testing.T) {
	dir := t.TempDir()
	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dt.HasAny() {
		t.Fatal("expected empty tier")
	}
	if dt.ChunkCount() != 0 {
		t.Errorf("expected 0 chunks, got %d", dt.ChunkCount())
	}
}

func TestOpenAndReadAcrossChunks(t *testing.T) {
	dir := t.TempDir()
	mustCreateChunk(t, dir, 0, []string{"a", "b", "c"}, 100)
	mustCreateChunk(t, dir, 1, []string{"d", "e"}, 200)

	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dt.ChunkCount() != 2 {
		t.Fatalf("expected 2 chunks, got %d", dt.ChunkCount())
	}
	if dt.Head() != 0 || dt.Tail() != 1 {
		t.Errorf("expected head=0 tail=1, got head=%d tail=%d", dt.Head(), dt.Tail())
	}

	payloads, shortfall, nextID, hasNext, err := dt.ReadRange(0, 0, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if shortfall != 0 {
		t.Errorf("expected shortfall 0, got %d", shortfall)
	}
	if len(payloads) != 4 {
		t.Fatalf("expected 4 payloads, got %d", len(payloads))
	}
	got := []string{string(payloads[0]), string(payloads[1]), string(payloads[2]), string(payloads[3])}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	_ = nextID
	_ = hasNext
}

func TestCorruptionTolerance(t *testing.T) {
	dir := t.TempDir()
	mustCreateChunk(t, dir, 0, []string{"x"}, 10)

	// Orphan index for id=1.
	if err := os.WriteFile(filepath.Join(dir, chunkio.IndexFileName(1)), make([]byte, chunkio.HashSize), 0o644); err != nil {
		t.Fatalf("write orphan index: %v", err)
	}
	// Orphan data for id=2.
	if err := os.WriteFile(filepath.Join(dir, chunkio.DataFileName(2)), []byte("xyz"), 0o644); err != nil {
		t.Fatalf("write orphan data: %v", err)
	}
	// Invalid name.
	if err := os.WriteFile(filepath.Join(dir, "foo.bar"), []byte{}, 0o644); err != nil {
		t.Fatalf("write invalid name file: %v", err)
	}

	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dt.ChunkCount() != 1 {
		t.Fatalf("expected 1 valid chunk, got %d", dt.ChunkCount())
	}

	reports := dt.InvalidFiles()
	if len(reports) != 3 {
		t.Fatalf("expected 3 invalid reports, got %d: %+v", len(reports), reports)
	}

	kinds := map[InvalidKind]int{}
	for _, r := range reports {
		kinds[r.Kind]++
	}
	if kinds[OrphanIndex] != 1 || kinds[OrphanData] != 1 || kinds[InvalidName] != 1 {
		t.Errorf("unexpected kind distribution: %+v", kinds)
	}
}

func TestInsertAndTimestampLookup(t *testing.T) {
	dir := t.TempDir()
	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := []chunkio.Entry{
		{Payload: []byte("a"), Timestamp: 100},
		{Payload: []byte("b"), Timestamp: 110},
	}
	if err := dt.Insert(0, entries); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	id, intra, err := dt.IndexForTimestamp(110)
	if err != nil {
		t.Fatalf("IndexForTimestamp: %v", err)
	}
	if id != 0 || intra != 1 {
		t.Errorf("expected (0,1), got (%d,%d)", id, intra)
	}

	if !dt.ContainsTime(105) {
		t.Error("expected ContainsTime(105) true")
	}
	if dt.ContainsTime(500) {
		t.Error("expected ContainsTime(500) false")
	}
}

func TestReadRangeNonContiguousIDs(t *testing.T) {
	dir := t.TempDir()
	mustCreateChunk(t, dir, 0, []string{"a", "b"}, 10)
	mustCreateChunk(t, dir, 3, []string{"c", "d"}, 20)

	dt, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dt.ChunkCount() != 2 {
		t.Fatalf("expected 2 chunks, got %d", dt.ChunkCount())
	}

	payloads, shortfall, _, _, err := dt.ReadRange(0, 0, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if shortfall != 0 {
		t.Errorf("expected shortfall 0, got %d", shortfall)
	}
	if len(payloads) != 4 {
		t.Fatalf("expected 4 payloads, got %d", len(payloads))
	}
	want := []string{"a", "b", "c", "d"}
	for i, w := range want {
		if string(payloads[i]) != w {
			t.Errorf("payload %d: expected %q, got %q", i, w, payloads[i])
		}
	}
}
