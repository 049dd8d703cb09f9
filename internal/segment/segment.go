// Package segment implements the in-memory ordered sequence of entries
// that backs both the active segment and each frozen segment of a commit
// log.
package segment

import "errors"

var ErrOutOfRange = errors.New("segment: index out of range")

type entry struct {
	payload   []byte
	timestamp uint64
}

// Segment is an ordered, append-only (while active) sequence of
// (payload, timestamp) entries. A timestamp of 0 is the sentinel meaning
// "absent" — it never updates the segment's time bounds.
type Segment struct {
	entries   []entry
	size      uint64
	startTime uint64
	endTime   uint64
	hasTime   bool
}

// WithCapacity returns an empty segment pre-reserving space for n entries.
func WithCapacity(n int) *Segment {
	return &Segment{entries: make([]entry, 0, n)}
}

// Push appends payload with the given timestamp from an external
// monotonic millisecond clock. A timestamp of 0 is sentinel-reserved and
// never updates the segment's time bounds.
func (s *Segment) Push(payload []byte, timestamp uint64) {
	s.entries = append(s.entries, entry{payload: payload, timestamp: timestamp})
	s.size += uint64(len(payload))
	if timestamp == 0 {
		return
	}
	if !s.hasTime {
		s.startTime = timestamp
		s.hasTime = true
	}
	s.endTime = timestamp
}

// At returns the payload at index i.
func (s *Segment) At(i int) ([]byte, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, ErrOutOfRange
	}
	return s.entries[i].payload, nil
}

// AtWithTimestamp returns the payload and timestamp at index i.
func (s *Segment) AtWithTimestamp(i int) ([]byte, uint64, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, 0, ErrOutOfRange
	}
	e := s.entries[i]
	return e.payload, e.timestamp, nil
}

// ReadRange reads up to n payloads starting at index i, returning the
// shortfall (n minus however many were available).
func (s *Segment) ReadRange(i, n int) ([][]byte, int) {
	if i < 0 || i > len(s.entries) {
		return nil, n
	}
	avail := len(s.entries) - i
	take := n
	if take > avail {
		take = avail
	}
	shortfall := n - take
	if take <= 0 {
		return nil, shortfall
	}
	out := make([][]byte, take)
	for j := 0; j < take; j++ {
		out[j] = s.entries[i+j].payload
	}
	return out, shortfall
}

// ReadRangeWithTimestamp is ReadRange but also returns each entry's
// timestamp.
func (s *Segment) ReadRangeWithTimestamp(i, n int) ([][]byte, []uint64, int) {
	if i < 0 || i > len(s.entries) {
		return nil, nil, n
	}
	avail := len(s.entries) - i
	take := n
	if take > avail {
		take = avail
	}
	shortfall := n - take
	if take <= 0 {
		return nil, nil, shortfall
	}
	payloads := make([][]byte, take)
	timestamps := make([]uint64, take)
	for j := 0; j < take; j++ {
		payloads[j] = s.entries[i+j].payload
		timestamps[j] = s.entries[i+j].timestamp
	}
	return payloads, timestamps, shortfall
}

// IndexForTimestamp performs a binary search over the segment's
// non-decreasing timestamps, returning the exact index on a hit or the
// insertion point (smallest index with timestamp > t) otherwise.
func (s *Segment) IndexForTimestamp(t uint64) int {
	lo, hi := 0, len(s.entries)
	for lo < hi {
		mid := lo + (hi-lo)/2
		ts := s.entries[mid].timestamp
		if ts == t {
			return mid
		}
		if ts < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Size returns the sum of payload lengths in the segment.
func (s *Segment) Size() uint64 {
	return s.size
}

// Len returns the number of entries in the segment.
func (s *Segment) Len() int {
	return len(s.entries)
}

// StartTime returns the timestamp of the first non-sentinel entry, or 0.
func (s *Segment) StartTime() uint64 {
	return s.startTime
}

// EndTime returns the timestamp of the last non-sentinel entry, or 0.
func (s *Segment) EndTime() uint64 {
	return s.endTime
}

// TakeEntries consumes the segment and returns its entries as
// (payload, timestamp) pairs, in order, for eviction to disk.
func (s *Segment) TakeEntries() (payloads [][]byte, timestamps []uint64) {
	payloads = make([][]byte, len(s.entries))
	timestamps = make([]uint64, len(s.entries))
	for i, e := range s.entries {
		payloads[i] = e.payload
		timestamps[i] = e.timestamp
	}
	s.entries = nil
	s.size = 0
	return payloads, timestamps
}
