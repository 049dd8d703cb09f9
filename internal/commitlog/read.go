package commitlog

import (
	"commitlog/internal/disktier"
	"commitlog/internal/segment"
)

// ReadRange implements the single-pass, no-recursion cross-tier read
// engine of spec.md §4.6: collect up to n payloads starting at (id,
// offset), crossing tier boundaries until n is satisfied or no more data
// exists. Returns the payloads read, the remaining (unsatisfied) count,
// and a continuation cursor (nextID, nextOffset) the caller can pass back
// in to resume.
func (cl *CommitLog) ReadRange(id uint64, offset, n int) (out [][]byte, remaining int, nextID uint64, nextOffset int, err error) {
	if id > cl.tail {
		return nil, 0, 0, 0, ErrNotFound
	}
	if n == 0 {
		if id < cl.head && cl.disk == nil {
			return nil, 0, 0, 0, ErrNotFound
		}
		return nil, 0, id, offset, nil
	}

	remaining = n
	curID := id
	curOffset := offset

	if curID < cl.head {
		if cl.disk == nil {
			return nil, 0, 0, 0, ErrNotFound
		}
		diskOut, shortfall, nextDiskID, hasNext, derr := cl.disk.ReadRange(curID, curOffset, remaining)
		if derr != nil {
			return nil, 0, 0, 0, derr
		}
		out = append(out, diskOut...)
		remaining = shortfall
		if hasNext {
			curID = nextDiskID
		} else {
			curID = cl.head
		}
		curOffset = 0
	}

	if remaining == 0 {
		return out, 0, curID, curOffset, nil
	}

	for remaining > 0 && curID < cl.tail {
		seg := cl.frozenAt(curID)
		payloads, shortfall := seg.ReadRange(curOffset, remaining)
		out = append(out, payloads...)
		if shortfall == 0 {
			used := curOffset + len(payloads)
			if used < seg.Len() {
				return out, 0, curID, used, nil
			}
			curID++
			curOffset = 0
			remaining = 0
			break
		}
		remaining = shortfall
		curID++
		curOffset = 0
	}

	if remaining == 0 {
		return out, 0, curID, curOffset, nil
	}

	if curID == cl.tail {
		payloads, shortfall := cl.active.ReadRange(curOffset, remaining)
		out = append(out, payloads...)
		curOffset += len(payloads)
		remaining = shortfall
	}

	return out, remaining, curID, curOffset, nil
}

// EntryWithTimestamp pairs a payload with its timestamp, used by
// ReadRangeWithTimestamp.
type EntryWithTimestamp struct {
	Payload   []byte
	Timestamp uint64
}

// ReadRangeWithTimestamp mirrors ReadRange but also carries each entry's
// timestamp.
func (cl *CommitLog) ReadRangeWithTimestamp(id uint64, offset, n int) (out []EntryWithTimestamp, remaining int, nextID uint64, nextOffset int, err error) {
	if id > cl.tail {
		return nil, 0, 0, 0, ErrNotFound
	}
	if n == 0 {
		if id < cl.head && cl.disk == nil {
			return nil, 0, 0, 0, ErrNotFound
		}
		return nil, 0, id, offset, nil
	}

	remaining = n
	curID := id
	curOffset := offset

	if curID < cl.head {
		if cl.disk == nil {
			return nil, 0, 0, 0, ErrNotFound
		}
		diskOut, shortfall, nextDiskID, hasNext, derr := cl.disk.ReadRangeWithTimestamp(curID, curOffset, remaining)
		if derr != nil {
			return nil, 0, 0, 0, derr
		}
		for _, e := range diskOut {
			out = append(out, EntryWithTimestamp{Payload: e.Payload, Timestamp: e.Timestamp})
		}
		remaining = shortfall
		if hasNext {
			curID = nextDiskID
		} else {
			curID = cl.head
		}
		curOffset = 0
	}

	if remaining == 0 {
		return out, 0, curID, curOffset, nil
	}

	for remaining > 0 && curID < cl.tail {
		seg := cl.frozenAt(curID)
		payloads, timestamps, shortfall := seg.ReadRangeWithTimestamp(curOffset, remaining)
		for i := range payloads {
			out = append(out, EntryWithTimestamp{Payload: payloads[i], Timestamp: timestamps[i]})
		}
		if shortfall == 0 {
			used := curOffset + len(payloads)
			if used < seg.Len() {
				return out, 0, curID, used, nil
			}
			curID++
			curOffset = 0
			remaining = 0
			break
		}
		remaining = shortfall
		curID++
		curOffset = 0
	}

	if remaining == 0 {
		return out, 0, curID, curOffset, nil
	}

	if curID == cl.tail {
		payloads, timestamps, shortfall := cl.active.ReadRangeWithTimestamp(curOffset, remaining)
		for i := range payloads {
			out = append(out, EntryWithTimestamp{Payload: payloads[i], Timestamp: timestamps[i]})
		}
		curOffset += len(payloads)
		remaining = shortfall
	}

	return out, remaining, curID, curOffset, nil
}

// IndexForTimestamp looks up the tier and intra-tier index for a
// timestamp, checking the active segment, then frozen segments
// front-to-back, then the disk tier. Returns ErrNotFound if t falls
// outside every tier's time window.
func (cl *CommitLog) IndexForTimestamp(t uint64) (id uint64, intraIndex int, err error) {
	if cl.active.Len() > 0 && containsTime(cl.active.StartTime(), cl.active.EndTime(), t) {
		return cl.tail, cl.active.IndexForTimestamp(t), nil
	}

	id = cl.head
	for e := cl.frozen.Front(); e != nil; e = e.Next() {
		s := e.Value.(*segment.Segment)
		if s.Len() > 0 && containsTime(s.StartTime(), s.EndTime(), t) {
			return id, s.IndexForTimestamp(t), nil
		}
		id++
	}

	if cl.disk != nil {
		diskID, intra, derr := cl.disk.IndexForTimestamp(t)
		if derr == nil {
			return diskID, intra, nil
		}
		if derr != disktier.ErrNotFound {
			return 0, 0, derr
		}
	}

	return 0, 0, ErrNotFound
}

func containsTime(start, end, t uint64) bool {
	if start == 0 && end == 0 {
		return false
	}
	return t >= start && t <= end
}

// ReadFromTimestamp composes IndexForTimestamp with ReadWithTimestamp.
func (cl *CommitLog) ReadFromTimestamp(t uint64) ([]byte, uint64, error) {
	id, intra, err := cl.IndexForTimestamp(t)
	if err != nil {
		return nil, 0, err
	}
	return cl.ReadWithTimestamp(id, intra)
}
