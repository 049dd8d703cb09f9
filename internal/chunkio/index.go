// Package chunkio implements the on-disk chunk format: one index file and
// one data file per sealed segment. The layout is bit-exact and is not
// backed by internal/format's header — it has no version byte, no magic
// signature beyond the leading hash, because the format predates this
// module's auxiliary-format conventions and must not drift.
package chunkio

import (
	"encoding/binary"
	"errors"
	"os"
)

const (
	HashSize  = 32
	EntrySize = 24

	offsetOffset = 8
	lenOffset    = 16
)

var (
	ErrTruncatedIndex = errors.New("chunkio: index file size not aligned to entry size")
	ErrIndexExists    = errors.New("chunkio: index file already exists")
)

// ChunkIndex is a read-only handle to a sealed chunk's index file: a
// 32-byte hash of the companion data file followed by fixed-size entries
// of (timestamp_ms, data_offset, payload_length), all big-endian uint64.
type ChunkIndex struct {
	f         *os.File
	hash      [HashSize]byte
	entries   int
	startTime uint64
	endTime   uint64
}

// IndexEntry is one decoded (offset, length) pair with its timestamp.
type IndexEntry struct {
	Timestamp uint64
	Offset    uint64
	Length    uint64
}

// OpenIndex opens an existing index file read-only, validating its size is
// aligned to EntrySize and reading the first/last entries for time bounds.
func OpenIndex(path string) (*ChunkIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	idx, err := newIndexFromFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

func newIndexFromFile(f *os.File) (*ChunkIndex, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < HashSize {
		return nil, ErrTruncatedIndex
	}
	rem := size - HashSize
	if rem%EntrySize != 0 {
		return nil, ErrTruncatedIndex
	}
	entries := int(rem / EntrySize)

	idx := &ChunkIndex{f: f, entries: entries}
	if _, err := f.ReadAt(idx.hash[:], 0); err != nil {
		return nil, err
	}
	if entries > 0 {
		first, _, _, err := idx.ReadWithTimestamp(0)
		if err != nil {
			return nil, err
		}
		last, _, _, err := idx.ReadWithTimestamp(entries - 1)
		if err != nil {
			return nil, err
		}
		idx.startTime = first
		idx.endTime = last
	}
	return idx, nil
}

// CreateIndex writes a new index file: the hash, then one entry per
// (length, timestamp) pair with running data offsets starting at 0. Fails
// if the file already exists. The returned handle is read-only thereafter.
func CreateIndex(path string, hash [HashSize]byte, lengths []uint64, timestamps []uint64) (*ChunkIndex, error) {
	if len(lengths) != len(timestamps) {
		return nil, errors.New("chunkio: lengths and timestamps length mismatch")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrIndexExists
		}
		return nil, err
	}

	buf := make([]byte, HashSize+EntrySize*len(lengths))
	copy(buf[:HashSize], hash[:])
	var offset uint64
	for i := range lengths {
		base := HashSize + EntrySize*i
		binary.BigEndian.PutUint64(buf[base:base+8], timestamps[i])
		binary.BigEndian.PutUint64(buf[base+8:base+16], offset)
		binary.BigEndian.PutUint64(buf[base+16:base+24], lengths[i])
		offset += lengths[i]
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}

	idx := &ChunkIndex{
		f:       f,
		hash:    hash,
		entries: len(lengths),
	}
	if len(timestamps) > 0 {
		idx.startTime = timestamps[0]
		idx.endTime = timestamps[len(timestamps)-1]
	}
	return idx, nil
}

// Close releases the underlying file handle.
func (idx *ChunkIndex) Close() error {
	return idx.f.Close()
}

// Entries returns the number of entries in the index.
func (idx *ChunkIndex) Entries() int {
	return idx.entries
}

// Sync forces the underlying file to stable storage.
func (idx *ChunkIndex) Sync() error {
	return idx.f.Sync()
}

// StartTime returns the timestamp of entry 0, or 0 if empty.
func (idx *ChunkIndex) StartTime() uint64 {
	return idx.startTime
}

// EndTime returns the timestamp of the last entry, or 0 if empty.
func (idx *ChunkIndex) EndTime() uint64 {
	return idx.endTime
}

// ReadHash returns the stored 32-byte hash of the companion data file.
func (idx *ChunkIndex) ReadHash() [HashSize]byte {
	return idx.hash
}

// Read returns the (offset, length) of entry i via a single positional
// 16-byte read.
func (idx *ChunkIndex) Read(i int) (offset uint64, length uint64, err error) {
	if i < 0 || i >= idx.entries {
		return 0, 0, ErrEntryOutOfRange
	}
	buf := make([]byte, 16)
	base := int64(HashSize + EntrySize*i + offsetOffset)
	if _, err := idx.f.ReadAt(buf, base); err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(buf[0:8]), binary.BigEndian.Uint64(buf[8:16]), nil
}

// ReadWithTimestamp returns (timestamp, offset, length) for entry i via a
// single positional 24-byte read.
func (idx *ChunkIndex) ReadWithTimestamp(i int) (timestamp, offset, length uint64, err error) {
	if i < 0 || i >= idx.entries {
		return 0, 0, 0, ErrEntryOutOfRange
	}
	buf := make([]byte, EntrySize)
	base := int64(HashSize + EntrySize*i)
	if _, err := idx.f.ReadAt(buf, base); err != nil {
		return 0, 0, 0, err
	}
	return binary.BigEndian.Uint64(buf[0:8]), binary.BigEndian.Uint64(buf[8:16]), binary.BigEndian.Uint64(buf[16:24]), nil
}

// ReadRange reads up to n entries starting at i in one positional read,
// returning the decoded (offset, length) pairs and the shortfall
// (max(0, i+n-entries)) if fewer were available.
func (idx *ChunkIndex) ReadRange(i, n int) ([]IndexEntry, int, error) {
	if i < 0 || i > idx.entries {
		return nil, 0, ErrEntryOutOfRange
	}
	avail := idx.entries - i
	take := n
	if take > avail {
		take = avail
	}
	shortfall := n - take
	if shortfall < 0 {
		shortfall = 0
	}
	if take <= 0 {
		return nil, shortfall, nil
	}

	buf := make([]byte, EntrySize*take)
	base := int64(HashSize + EntrySize*i)
	if _, err := idx.f.ReadAt(buf, base); err != nil {
		return nil, 0, err
	}
	out := make([]IndexEntry, take)
	for j := 0; j < take; j++ {
		b := buf[EntrySize*j:]
		out[j] = IndexEntry{
			Timestamp: binary.BigEndian.Uint64(b[0:8]),
			Offset:    binary.BigEndian.Uint64(b[8:16]),
			Length:    binary.BigEndian.Uint64(b[16:24]),
		}
	}
	return out, shortfall, nil
}

// IndexForTimestamp performs a binary search over entry timestamps,
// returning the exact index on a hit or the insertion point (smallest
// index whose timestamp exceeds t) otherwise. Returns idx.entries if t is
// greater than the last timestamp.
func (idx *ChunkIndex) IndexForTimestamp(t uint64) (int, error) {
	lo, hi := 0, idx.entries
	for lo < hi {
		mid := lo + (hi-lo)/2
		ts, _, _, err := idx.ReadWithTimestamp(mid)
		if err != nil {
			return 0, err
		}
		if ts == t {
			return mid, nil
		}
		if ts < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// ContainsTime reports whether t falls within [StartTime, EndTime].
func (idx *ChunkIndex) ContainsTime(t uint64) bool {
	if idx.entries == 0 {
		return false
	}
	return t >= idx.startTime && t <= idx.endTime
}

var ErrEntryOutOfRange = errors.New("chunkio: entry index out of range")
