package chunkio

import (
	"errors"
	"os"
)

var ErrDataExists = errors.New("chunkio: data file already exists")

// ChunkData is a read-only handle to a sealed chunk's data file: the flat
// concatenation of payload bytes in index order.
type ChunkData struct {
	f    *os.File
	size int64
}

// OpenData opens an existing data file read-only.
func OpenData(path string) (*ChunkData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ChunkData{f: f, size: fi.Size()}, nil
}

// CreateData writes a new data file containing exactly the given bytes.
// Fails if the file already exists. The returned handle is read-only
// thereafter.
func CreateData(path string, data []byte) (*ChunkData, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrDataExists
		}
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	return &ChunkData{f: f, size: int64(len(data))}, nil
}

// Close releases the underlying file handle.
func (d *ChunkData) Close() error {
	return d.f.Close()
}

// Size returns the data file's byte length.
func (d *ChunkData) Size() int64 {
	return d.size
}

// Sync forces the underlying file to stable storage.
func (d *ChunkData) Sync() error {
	return d.f.Sync()
}

// Read returns length bytes starting at offset. Fails if offset+length
// exceeds the file size.
func (d *ChunkData) Read(offset, length uint64) ([]byte, error) {
	if int64(offset+length) > d.size {
		return nil, ErrEntryOutOfRange
	}
	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}
	if _, err := d.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadRange coalesces a set of (offset, length) pairs — contiguous by
// construction — into a single positional read starting at the first
// offset, then slices the result into per-entry payloads.
func (d *ChunkData) ReadRange(entries []IndexEntry) ([][]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	start := entries[0].Offset
	var total uint64
	for _, e := range entries {
		total += e.Length
	}
	if int64(start+total) > d.size {
		return nil, ErrEntryOutOfRange
	}
	buf := make([]byte, total)
	if total > 0 {
		if _, err := d.f.ReadAt(buf, int64(start)); err != nil {
			return nil, err
		}
	}
	out := make([][]byte, len(entries))
	var cur uint64
	for i, e := range entries {
		out[i] = buf[cur : cur+e.Length]
		cur += e.Length
	}
	return out, nil
}
