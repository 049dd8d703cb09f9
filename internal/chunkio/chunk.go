package chunkio

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// IndexFileName returns the zero-padded 20-digit index file name for id.
func IndexFileName(id uint64) string {
	return fmt.Sprintf("%020d.index", id)
}

// DataFileName returns the zero-padded 20-digit data file name for id.
func DataFileName(id uint64) string {
	return fmt.Sprintf("%020d.data", id)
}

// Chunk pairs one ChunkIndex and one ChunkData file, both named by a
// zero-padded 20-digit decimal chunk id in the owning directory.
type Chunk struct {
	ID    uint64
	Index *ChunkIndex
	Data  *ChunkData
}

// Entry is one decoded (payload, timestamp) pair.
type Entry struct {
	Payload   []byte
	Timestamp uint64
}

// Create writes the data file, then the index file (data-first ordering
// is mandatory so a crash between writes never leaves a valid index
// pointing at a missing or partial data file), hashing the concatenated
// payload bytes with sha256 as it goes. Both files are read-only
// afterward.
func Create(dir string, id uint64, entries []Entry) (*Chunk, error) {
	lengths := make([]uint64, len(entries))
	timestamps := make([]uint64, len(entries))
	h := sha256.New()
	var total uint64
	for i, e := range entries {
		lengths[i] = uint64(len(e.Payload))
		timestamps[i] = e.Timestamp
		total += lengths[i]
		h.Write(e.Payload)
	}
	var hash [HashSize]byte
	copy(hash[:], h.Sum(nil))

	payload := make([]byte, 0, total)
	for _, e := range entries {
		payload = append(payload, e.Payload...)
	}

	dataPath := filepath.Join(dir, DataFileName(id))
	data, err := CreateData(dataPath, payload)
	if err != nil {
		return nil, err
	}

	indexPath := filepath.Join(dir, IndexFileName(id))
	index, err := CreateIndex(indexPath, hash, lengths, timestamps)
	if err != nil {
		data.Close()
		return nil, err
	}

	return &Chunk{ID: id, Index: index, Data: data}, nil
}

// Open opens both the index and data files read-only without verifying
// the checksum, returning the chunk plus its time bounds.
func Open(dir string, id uint64) (chunk *Chunk, startTime, endTime uint64, err error) {
	indexPath := filepath.Join(dir, IndexFileName(id))
	index, err := OpenIndex(indexPath)
	if err != nil {
		return nil, 0, 0, err
	}
	dataPath := filepath.Join(dir, DataFileName(id))
	data, err := OpenData(dataPath)
	if err != nil {
		index.Close()
		return nil, 0, 0, err
	}
	return &Chunk{ID: id, Index: index, Data: data}, index.StartTime(), index.EndTime(), nil
}

// Sync forces both the index and data files to stable storage.
func (c *Chunk) Sync() error {
	if err := c.Data.Sync(); err != nil {
		return err
	}
	return c.Index.Sync()
}

// Close releases both underlying file handles.
func (c *Chunk) Close() error {
	ierr := c.Index.Close()
	derr := c.Data.Close()
	if ierr != nil {
		return ierr
	}
	return derr
}

// Verify re-hashes the entire data file with sha256 and compares it
// against the stored hash.
func (c *Chunk) Verify() (bool, error) {
	buf, err := c.Data.Read(0, uint64(c.Data.Size()))
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(buf)
	return sum == c.Index.ReadHash(), nil
}

// Entries returns the number of entries in the chunk.
func (c *Chunk) Entries() int {
	return c.Index.Entries()
}

// Size returns the data file's byte size.
func (c *Chunk) Size() int64 {
	return c.Data.Size()
}

// StartTime returns the timestamp of the first entry.
func (c *Chunk) StartTime() uint64 {
	return c.Index.StartTime()
}

// EndTime returns the timestamp of the last entry.
func (c *Chunk) EndTime() uint64 {
	return c.Index.EndTime()
}

// ContainsTime reports whether t falls within the chunk's time bounds.
func (c *Chunk) ContainsTime(t uint64) bool {
	return c.Index.ContainsTime(t)
}

// IndexForTimestamp delegates to the index's binary search.
func (c *Chunk) IndexForTimestamp(t uint64) (int, error) {
	return c.Index.IndexForTimestamp(t)
}

// Read returns the payload at entry i.
func (c *Chunk) Read(i int) ([]byte, error) {
	offset, length, err := c.Index.Read(i)
	if err != nil {
		return nil, err
	}
	return c.Data.Read(offset, length)
}

// ReadWithTimestamp returns the payload and timestamp at entry i.
func (c *Chunk) ReadWithTimestamp(i int) ([]byte, uint64, error) {
	ts, offset, length, err := c.Index.ReadWithTimestamp(i)
	if err != nil {
		return nil, 0, err
	}
	buf, err := c.Data.Read(offset, length)
	return buf, ts, err
}

// ReadRange reads up to n payloads starting at entry i, returning the
// shortfall (entries short of n) when the chunk runs out.
func (c *Chunk) ReadRange(i, n int) ([][]byte, int, error) {
	entries, shortfall, err := c.Index.ReadRange(i, n)
	if err != nil {
		return nil, 0, err
	}
	payloads, err := c.Data.ReadRange(entries)
	if err != nil {
		return nil, 0, err
	}
	return payloads, shortfall, nil
}

// ReadRangeWithTimestamp is ReadRange but also returns each entry's
// timestamp alongside its payload.
func (c *Chunk) ReadRangeWithTimestamp(i, n int) ([]Entry, int, error) {
	entries, shortfall, err := c.Index.ReadRange(i, n)
	if err != nil {
		return nil, 0, err
	}
	payloads, err := c.Data.ReadRange(entries)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Entry, len(entries))
	for j, e := range entries {
		out[j] = Entry{Payload: payloads[j], Timestamp: e.Timestamp}
	}
	return out, shortfall, nil
}
