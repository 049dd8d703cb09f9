// Package disktier owns the unbounded set of on-disk chunks in a single
// directory: scanning it on open, classifying and verifying each chunk,
// and routing reads and timestamp lookups across the chunk set.
package disktier

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"commitlog/internal/chunkio"
	"commitlog/internal/logging"
)

var (
	ErrNotFound = errors.New("disktier: not found")
)

// InvalidKind identifies why a file or file pair could not be treated as
// a valid chunk.
type InvalidKind int

const (
	InvalidName InvalidKind = iota
	OrphanIndex
	OrphanData
	ChecksumMismatch
)

func (k InvalidKind) String() string {
	switch k {
	case InvalidName:
		return "InvalidName"
	case OrphanIndex:
		return "OrphanIndex"
	case OrphanData:
		return "OrphanData"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	default:
		return "Unknown"
	}
}

// InvalidReport describes one file or chunk id that DiskTier could not
// incorporate. For OrphanIndex/OrphanData/ChecksumMismatch, ID holds the
// chunk id; for InvalidName it is zero and Path names the offending file.
type InvalidReport struct {
	Path string
	Kind InvalidKind
	ID   uint64
}

// DiskTier owns all chunks in a directory.
type DiskTier struct {
	dir     string
	logger  *slog.Logger
	chunks  map[uint64]*chunkio.Chunk
	invalid []InvalidReport

	headID        uint64
	tailID        uint64
	nextInsertID  uint64
	hasAny        bool
	headTime      uint64
	tailTime      uint64
}

// Open creates dir if missing, scans it, classifies every file, verifies
// every candidate chunk, and returns a DiskTier over the valid subset plus
// a non-fatal list of InvalidReports for everything else.
func Open(dir string, logger *slog.Logger) (*DiskTier, error) {
	logger = logging.Default(logger).With("component", "disktier")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type half struct {
		hasIndex, hasData bool
	}
	halves := make(map[uint64]*half)
	var invalidNames []InvalidReport

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		id, kind, ok := parseChunkFileName(name)
		if !ok {
			invalidNames = append(invalidNames, InvalidReport{Path: filepath.Join(dir, name), Kind: InvalidName})
			continue
		}
		h := halves[id]
		if h == nil {
			h = &half{}
			halves[id] = h
		}
		if kind == "index" {
			h.hasIndex = true
		} else {
			h.hasData = true
		}
	}

	ids := make([]uint64, 0, len(halves))
	for id := range halves {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	dt := &DiskTier{
		dir:     dir,
		logger:  logger,
		chunks:  make(map[uint64]*chunkio.Chunk),
		invalid: invalidNames,
	}

	for _, id := range ids {
		h := halves[id]
		switch {
		case h.hasIndex && !h.hasData:
			dt.invalid = append(dt.invalid, InvalidReport{Path: chunkio.IndexFileName(id), Kind: OrphanIndex, ID: id})
			continue
		case h.hasData && !h.hasIndex:
			dt.invalid = append(dt.invalid, InvalidReport{Path: chunkio.DataFileName(id), Kind: OrphanData, ID: id})
			continue
		}

		c, start, end, err := chunkio.Open(dir, id)
		if err != nil {
			dt.invalid = append(dt.invalid, InvalidReport{Path: chunkio.IndexFileName(id), Kind: ChecksumMismatch, ID: id})
			continue
		}
		ok, err := c.Verify()
		if err != nil || !ok {
			c.Close()
			dt.invalid = append(dt.invalid, InvalidReport{Path: chunkio.IndexFileName(id), Kind: ChecksumMismatch, ID: id})
			continue
		}

		dt.chunks[id] = c
		if !dt.hasAny {
			dt.headID = id
			dt.headTime = start
			dt.tailTime = end
			dt.hasAny = true
		} else {
			if start < dt.headTime {
				dt.headTime = start
			}
			if end > dt.tailTime {
				dt.tailTime = end
			}
		}
		// ids is processed in ascending order, so the running id is always
		// the new tail.
		dt.tailID = id
	}

	if dt.hasAny {
		dt.nextInsertID = dt.tailID + 1
	}

	logger.Info("disk tier opened", "valid_chunks", len(dt.chunks), "invalid_files", len(dt.invalid))
	return dt, nil
}

func parseChunkFileName(name string) (id uint64, kind string, ok bool) {
	ext := filepath.Ext(name)
	var k string
	switch ext {
	case ".index":
		k = "index"
	case ".data":
		k = "data"
	default:
		return 0, "", false
	}
	stem := strings.TrimSuffix(name, ext)
	if len(stem) != 20 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, k, true
}

// Insert builds a new Chunk from entries and adds it to the tier,
// advancing the tail id and time bounds if this id extends them.
func (dt *DiskTier) Insert(id uint64, entries []chunkio.Entry) error {
	c, err := chunkio.Create(dt.dir, id, entries)
	if err != nil {
		return err
	}
	dt.chunks[id] = c
	if !dt.hasAny {
		dt.headID = id
		dt.headTime = c.StartTime()
		dt.tailID = id
		dt.tailTime = c.EndTime()
		dt.hasAny = true
	} else {
		if id > dt.tailID {
			dt.tailID = id
			dt.tailTime = c.EndTime()
		}
		if id < dt.headID {
			dt.headID = id
		}
		if c.StartTime() < dt.headTime && c.StartTime() != 0 {
			dt.headTime = c.StartTime()
		}
		if c.EndTime() > dt.tailTime {
			dt.tailTime = c.EndTime()
		}
	}
	dt.nextInsertID = dt.tailID + 1
	dt.logger.Debug("chunk inserted", "id", id, "entries", len(entries))
	return nil
}

// Read returns the payload at (id, offset).
func (dt *DiskTier) Read(id uint64, offset int) ([]byte, error) {
	c, ok := dt.chunks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Read(offset)
}

// ReadWithTimestamp returns the payload and timestamp at (id, offset).
func (dt *DiskTier) ReadWithTimestamp(id uint64, offset int) ([]byte, uint64, error) {
	c, ok := dt.chunks[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return c.ReadWithTimestamp(offset)
}

// presentIDAtOrAfter returns the smallest id >= from that has a chunk, or
// (0, false) if none exists up to tailID.
func (dt *DiskTier) presentIDAtOrAfter(from uint64) (uint64, bool) {
	if !dt.hasAny || from > dt.tailID {
		return 0, false
	}
	for id := from; id <= dt.tailID; id++ {
		if _, ok := dt.chunks[id]; ok {
			return id, true
		}
		if id == dt.tailID {
			break
		}
	}
	return 0, false
}

// presentIDAfter returns the smallest id > from that has a chunk, or
// (0, false) if none exists up to tailID.
func (dt *DiskTier) presentIDAfter(from uint64) (uint64, bool) {
	if from == dt.tailID {
		return 0, false
	}
	return dt.presentIDAtOrAfter(from + 1)
}

// ReadRange implements the disk-tier continuation algorithm of
// §4.6: reads up to n payloads from chunk id starting at offset,
// stepping across non-contiguous chunk ids as needed, returning the
// shortfall and the id of the next chunk to continue from (if any).
func (dt *DiskTier) ReadRange(id uint64, offset, n int) (out [][]byte, shortfall int, nextID uint64, hasNext bool, err error) {
	remaining := n
	curID := id
	curOffset := offset

	for remaining > 0 {
		c, ok := dt.chunks[curID]
		if !ok {
			next, found := dt.presentIDAtOrAfter(curID)
			if !found {
				return out, remaining, 0, false, nil
			}
			curID = next
			curOffset = 0
			continue
		}

		payloads, sf, rerr := c.ReadRange(curOffset, remaining)
		if rerr != nil {
			return nil, 0, 0, false, rerr
		}
		out = append(out, payloads...)
		remaining = sf

		if remaining == 0 {
			if curOffset+len(payloads) < c.Entries() {
				return out, 0, curID, true, nil
			}
			next, found := dt.presentIDAfter(curID)
			if !found {
				return out, 0, 0, false, nil
			}
			return out, 0, next, true, nil
		}

		next, found := dt.presentIDAfter(curID)
		if !found {
			return out, remaining, 0, false, nil
		}
		curID = next
		curOffset = 0
	}
	return out, remaining, curID, true, nil
}

// ReadRangeWithTimestamp mirrors ReadRange but also carries timestamps.
func (dt *DiskTier) ReadRangeWithTimestamp(id uint64, offset, n int) (out []chunkio.Entry, shortfall int, nextID uint64, hasNext bool, err error) {
	remaining := n
	curID := id
	curOffset := offset

	for remaining > 0 {
		c, ok := dt.chunks[curID]
		if !ok {
			next, found := dt.presentIDAtOrAfter(curID)
			if !found {
				return out, remaining, 0, false, nil
			}
			curID = next
			curOffset = 0
			continue
		}

		entries, sf, rerr := c.ReadRangeWithTimestamp(curOffset, remaining)
		if rerr != nil {
			return nil, 0, 0, false, rerr
		}
		out = append(out, entries...)
		remaining = sf

		if remaining == 0 {
			if curOffset+len(entries) < c.Entries() {
				return out, 0, curID, true, nil
			}
			next, found := dt.presentIDAfter(curID)
			if !found {
				return out, 0, 0, false, nil
			}
			return out, 0, next, true, nil
		}

		next, found := dt.presentIDAfter(curID)
		if !found {
			return out, remaining, 0, false, nil
		}
		curID = next
		curOffset = 0
	}
	return out, remaining, curID, true, nil
}

// IndexForTimestamp scans chunks for the one whose time bounds contain t.
func (dt *DiskTier) IndexForTimestamp(t uint64) (id uint64, intraIndex int, err error) {
	for cid, c := range dt.chunks {
		if c.ContainsTime(t) {
			i, ferr := c.IndexForTimestamp(t)
			if ferr != nil {
				return 0, 0, ferr
			}
			return cid, i, nil
		}
	}
	return 0, 0, ErrNotFound
}

// ContainsTime reports whether any chunk's bounds contain t.
func (dt *DiskTier) ContainsTime(t uint64) bool {
	for _, c := range dt.chunks {
		if c.ContainsTime(t) {
			return true
		}
	}
	return false
}

// Head returns the smallest valid chunk id, or 0 if none exist.
func (dt *DiskTier) Head() uint64 {
	return dt.headID
}

// Tail returns the largest valid chunk id, or 0 if none exist.
func (dt *DiskTier) Tail() uint64 {
	return dt.tailID
}

// NextInsertID returns the id the next Insert should use to extend the
// tier contiguously.
func (dt *DiskTier) NextInsertID() uint64 {
	return dt.nextInsertID
}

// HasAny reports whether the tier holds at least one valid chunk.
func (dt *DiskTier) HasAny() bool {
	return dt.hasAny
}

// InvalidFiles returns the accumulated non-fatal invalid-file reports.
func (dt *DiskTier) InvalidFiles() []InvalidReport {
	return dt.invalid
}

// ChunkCount returns the number of valid chunks.
func (dt *DiskTier) ChunkCount() int {
	return len(dt.chunks)
}

// Flush forces every currently open chunk's underlying files to stable
// storage.
func (dt *DiskTier) Flush() error {
	var firstErr error
	for _, c := range dt.chunks {
		if err := c.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FlushAt forces a specific chunk's files to stable storage.
func (dt *DiskTier) FlushAt(id uint64) error {
	c, ok := dt.chunks[id]
	if !ok {
		return ErrNotFound
	}
	return c.Sync()
}

// Close closes every open chunk.
func (dt *DiskTier) Close() error {
	var firstErr error
	for _, c := range dt.chunks {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
