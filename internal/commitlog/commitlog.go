// Package commitlog coordinates the three-tier commit log: the active
// in-memory segment, a bounded ring of frozen in-memory segments, and an
// unbounded on-disk tier. It implements the retention/promotion state
// machine and the cross-tier read engine.
package commitlog

import (
	"container/list"
	"log/slog"

	"commitlog/internal/chunkio"
	"commitlog/internal/disktier"
	"commitlog/internal/logging"
	"commitlog/internal/segment"
)

// CommitLog is the top-level coordinator described in spec.md §4.6.
type CommitLog struct {
	cfg    Config
	logger *slog.Logger

	head uint64
	tail uint64

	active      *segment.Segment
	frozen      *list.List // of *segment.Segment, oldest first
	frozenBytes uint64

	disk *disktier.DiskTier
}

// New constructs a CommitLog per cfg. If cfg.DiskDir is non-empty, it
// opens (creating if necessary) the on-disk tier at that path and aligns
// head/tail so in-memory segment ids never collide with on-disk ones.
func New(cfg Config) (*CommitLog, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := logging.Default(cfg.Logger).With("component", "commitlog")

	cl := &CommitLog{
		cfg:    cfg,
		logger: logger,
		active: segment.WithCapacity(0),
		frozen: list.New(),
	}

	if cfg.DiskDir != "" {
		dt, err := disktier.Open(cfg.DiskDir, logger)
		if err != nil {
			return nil, err
		}
		cl.disk = dt
		if dt.HasAny() {
			cl.head = dt.Tail() + 1
			cl.tail = cl.head
		}
	}

	logger.Info("commit log opened", "head", cl.head, "tail", cl.tail, "disk", cfg.DiskDir != "")
	return cl, nil
}

// Append pushes payload into the active segment using the configured
// clock, running retention first. Returns the segment id the payload
// landed in and the segment's new entry count.
func (cl *CommitLog) Append(payload []byte) (uint64, int, error) {
	var ts uint64
	if cl.cfg.Now != nil {
		ts = cl.cfg.Now()
	}
	return cl.AppendWithTimestamp(payload, ts)
}

// AppendWithTimestamp is Append with an explicit timestamp, used by
// replay and tests.
func (cl *CommitLog) AppendWithTimestamp(payload []byte, ts uint64) (uint64, int, error) {
	if err := cl.applyRetention(); err != nil {
		return 0, 0, err
	}
	cl.active.Push(payload, ts)
	return cl.tail, cl.active.Len(), nil
}

// applyRetention implements spec.md §4.6's retention state machine,
// sealing the active segment when it has grown to MaxSegmentSize and
// evicting the oldest frozen segment once the frozen queue reaches
// MaxMemorySegments. Sealing is triggered by size >= MaxSegmentSize,
// so the last-pushed payload may push a segment to
// MaxSegmentSize + len(payload) - 1 bytes; this overflow is intentional.
func (cl *CommitLog) applyRetention() error {
	if cl.active.Size() < cl.cfg.MaxSegmentSize {
		return nil
	}

	sealed := cl.active
	cl.active = segment.WithCapacity(0)
	cl.tail++
	cl.frozenBytes += sealed.Size()
	cl.frozen.PushBack(sealed)
	cl.logger.Debug("sealed active segment", "new_tail", cl.tail, "size", sealed.Size())

	if cl.frozen.Len() >= cl.cfg.MaxMemorySegments {
		front := cl.frozen.Front()
		oldest := front.Value.(*segment.Segment)
		cl.frozen.Remove(front)
		cl.frozenBytes -= oldest.Size()

		if cl.disk != nil {
			payloads, timestamps := oldest.TakeEntries()
			entries := make([]chunkio.Entry, len(payloads))
			for i := range payloads {
				entries[i] = chunkio.Entry{Payload: payloads[i], Timestamp: timestamps[i]}
			}
			if err := cl.disk.Insert(cl.head, entries); err != nil {
				return err
			}
		}
		cl.logger.Debug("evicted frozen segment", "evicted_id", cl.head, "new_head", cl.head+1)
		cl.head++
	}
	return nil
}

// Read returns the payload at (id, offset).
func (cl *CommitLog) Read(id uint64, offset int) ([]byte, error) {
	payload, _, err := cl.read(id, offset)
	return payload, err
}

// ReadWithTimestamp returns the payload and timestamp at (id, offset).
func (cl *CommitLog) ReadWithTimestamp(id uint64, offset int) ([]byte, uint64, error) {
	return cl.read(id, offset)
}

func (cl *CommitLog) read(id uint64, offset int) ([]byte, uint64, error) {
	if id > cl.tail {
		return nil, 0, ErrNotFound
	}
	if id < cl.head {
		if cl.disk == nil {
			return nil, 0, ErrNotFound
		}
		p, ts, err := cl.disk.ReadWithTimestamp(id, offset)
		if err != nil {
			if err == disktier.ErrNotFound {
				return nil, 0, ErrNotFound
			}
			return nil, 0, err
		}
		return p, ts, nil
	}
	if id < cl.tail {
		seg := cl.frozenAt(id)
		p, ts, err := seg.AtWithTimestamp(offset)
		if err != nil {
			return nil, 0, ErrNotFound
		}
		return p, ts, nil
	}
	p, ts, err := cl.active.AtWithTimestamp(offset)
	if err != nil {
		return nil, 0, ErrNotFound
	}
	return p, ts, nil
}

func (cl *CommitLog) frozenAt(id uint64) *segment.Segment {
	idx := int(id - cl.head)
	e := cl.frozen.Front()
	for i := 0; i < idx; i++ {
		e = e.Next()
	}
	return e.Value.(*segment.Segment)
}

// HeadAndTail returns (head, tail): the smallest in-memory segment id
// (equal to tail when no frozen segments exist) and the active segment's
// id.
func (cl *CommitLog) HeadAndTail() (uint64, uint64) {
	return cl.head, cl.tail
}

// DiskChunkCount returns the number of valid on-disk chunks. Returns an
// error if no disk tier is configured.
func (cl *CommitLog) DiskChunkCount() (int, error) {
	if cl.disk == nil {
		return 0, ErrNoDisk
	}
	return cl.disk.ChunkCount(), nil
}

// Flush forces every on-disk chunk's files to stable storage. A no-op if
// no disk tier is configured.
func (cl *CommitLog) Flush() error {
	if cl.disk == nil {
		return nil
	}
	return cl.disk.Flush()
}

// FlushAt forces a specific on-disk chunk's files to stable storage.
// Returns ErrNotFound if id is not a chunk currently tracked by the disk
// tier, including when no disk tier is configured at all.
func (cl *CommitLog) FlushAt(id uint64) error {
	if cl.disk == nil {
		return ErrNotFound
	}
	if err := cl.disk.FlushAt(id); err != nil {
		if err == disktier.ErrNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// InvalidFiles returns the disk tier's accumulated non-fatal invalid-file
// reports (empty if no disk tier is configured).
func (cl *CommitLog) InvalidFiles() []disktier.InvalidReport {
	if cl.disk == nil {
		return nil
	}
	return cl.disk.InvalidFiles()
}

// Close releases the disk tier's open file handles, if any.
func (cl *CommitLog) Close() error {
	if cl.disk == nil {
		return nil
	}
	return cl.disk.Close()
}
