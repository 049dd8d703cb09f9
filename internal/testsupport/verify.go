package testsupport

import (
	"bytes"
	"testing"
)

// AssertPayloadsEqual fails t if got and want differ in length or content,
// in order.
func AssertPayloadsEqual(t *testing.T, got, want [][]byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d payloads, got %d", len(want), len(got))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("payload %d mismatch: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// AssertNonDecreasing fails t if timestamps is not sorted in non-decreasing
// order, skipping the 0 sentinel (absent timestamp).
func AssertNonDecreasing(t *testing.T, timestamps []uint64) {
	t.Helper()
	var prev uint64
	for i, ts := range timestamps {
		if ts == 0 {
			continue
		}
		if ts < prev {
			t.Fatalf("timestamp at index %d (%d) is less than previous non-zero timestamp %d", i, ts, prev)
		}
		prev = ts
	}
}

// RoundTrip appends every payload in packets via append, then reads each
// one back with read and reports any mismatch. append and read abstract
// over whatever store is under test (an active-only ring, a full
// CommitLog, a single chunk, ...), so this oracle is reusable across
// package boundaries.
func RoundTrip(t *testing.T, packets [][]byte, append func(payload []byte) (id uint64, offset int, err error), read func(id uint64, offset int) ([]byte, error)) {
	t.Helper()
	type loc struct {
		id     uint64
		offset int
	}
	locs := make([]loc, len(packets))
	for i, p := range packets {
		id, offset, err := append(p)
		if err != nil {
			t.Fatalf("append payload %d: %v", i, err)
		}
		locs[i] = loc{id, offset}
	}
	for i, l := range locs {
		got, err := read(l.id, l.offset)
		if err != nil {
			t.Fatalf("read payload %d back at (%d,%d): %v", i, l.id, l.offset, err)
		}
		if !bytes.Equal(got, packets[i]) {
			t.Fatalf("round trip mismatch at payload %d: expected %q, got %q", i, packets[i], got)
		}
	}
}
