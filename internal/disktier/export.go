package disktier

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"commitlog/internal/chunkio"
	"commitlog/internal/format"
)

const exportArchiveVersion = 1

var (
	ErrChunkNotSealed  = errors.New("disktier: chunk not sealed")
	ErrImportIDExists  = errors.New("disktier: chunk id already present")
	ErrManifestInvalid = errors.New("disktier: export manifest invalid")
)

// manifest precedes the compressed index+data stream in an export archive.
// The export id is a uuid rather than a chunk id because an archive may
// move between hosts and outlive the directory it came from; the source
// chunk id is carried separately so ImportChunk can recreate it exactly.
type manifest struct {
	exportID    uuid.UUID
	sourceID    uint64
	indexLen    uint64
	dataLen     uint64
	hash        [chunkio.HashSize]byte
}

const manifestSize = 16 + 8 + 8 + 8 + chunkio.HashSize

func (m manifest) encode() []byte {
	buf := make([]byte, manifestSize)
	copy(buf[0:16], m.exportID[:])
	binary.BigEndian.PutUint64(buf[16:24], m.sourceID)
	binary.BigEndian.PutUint64(buf[24:32], m.indexLen)
	binary.BigEndian.PutUint64(buf[32:40], m.dataLen)
	copy(buf[40:40+chunkio.HashSize], m.hash[:])
	return buf
}

func decodeManifest(buf []byte) (manifest, error) {
	if len(buf) != manifestSize {
		return manifest{}, ErrManifestInvalid
	}
	var m manifest
	copy(m.exportID[:], buf[0:16])
	m.sourceID = binary.BigEndian.Uint64(buf[16:24])
	m.indexLen = binary.BigEndian.Uint64(buf[24:32])
	m.dataLen = binary.BigEndian.Uint64(buf[32:40])
	copy(m.hash[:], buf[40:40+chunkio.HashSize])
	return m, nil
}

// ExportChunk streams a compressed, self-describing archive of chunk id's
// index and data files to w. The chunk must currently be tracked by this
// tier (i.e. sealed and resident). Compression applies only to the export
// stream; the chunk's own on-disk files are left untouched.
func (dt *DiskTier) ExportChunk(w io.Writer, id uint64) error {
	c, ok := dt.chunks[id]
	if !ok {
		return ErrNotFound
	}

	header := format.Header{Type: format.TypeExportArchive, Version: exportArchiveVersion}
	hb := header.Encode()
	if _, err := w.Write(hb[:]); err != nil {
		return err
	}

	indexBuf, err := readWholeIndex(c)
	if err != nil {
		return err
	}
	dataBuf, err := c.Data.Read(0, uint64(c.Data.Size()))
	if err != nil {
		return err
	}

	exportID, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	man := manifest{
		exportID: exportID,
		sourceID: id,
		indexLen: uint64(len(indexBuf)),
		dataLen:  uint64(len(dataBuf)),
		hash:     c.Index.ReadHash(),
	}
	if _, err := w.Write(man.encode()); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(indexBuf); err != nil {
		enc.Close()
		return err
	}
	if _, err := enc.Write(dataBuf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func readWholeIndex(c *chunkio.Chunk) ([]byte, error) {
	n := c.Entries()
	entries, shortfall, err := c.Index.ReadRange(0, n)
	if err != nil {
		return nil, err
	}
	_ = shortfall
	buf := make([]byte, chunkio.HashSize+chunkio.EntrySize*len(entries))
	hash := c.Index.ReadHash()
	copy(buf[:chunkio.HashSize], hash[:])
	for i, e := range entries {
		base := chunkio.HashSize + chunkio.EntrySize*i
		binary.BigEndian.PutUint64(buf[base:base+8], e.Timestamp)
		binary.BigEndian.PutUint64(buf[base+8:base+16], e.Offset)
		binary.BigEndian.PutUint64(buf[base+16:base+24], e.Length)
	}
	return buf, nil
}

// ImportChunk reverses ExportChunk: it validates the header, decompresses
// the stream, reconstructs {id}.index and {id}.data under dir using the
// manifest's source chunk id, and verifies the hash before returning.
// Refuses to overwrite an existing chunk id.
func ImportChunk(r io.Reader, dir string) (uint64, error) {
	br := bufio.NewReader(r)

	hb := make([]byte, format.HeaderSize)
	if _, err := io.ReadFull(br, hb); err != nil {
		return 0, err
	}
	if _, err := format.DecodeAndValidate(hb, format.TypeExportArchive, exportArchiveVersion); err != nil {
		return 0, err
	}

	mb := make([]byte, manifestSize)
	if _, err := io.ReadFull(br, mb); err != nil {
		return 0, err
	}
	man, err := decodeManifest(mb)
	if err != nil {
		return 0, err
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return 0, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	indexBuf := make([]byte, man.indexLen)
	if _, err := io.ReadFull(dec, indexBuf); err != nil {
		return 0, err
	}
	dataBuf := make([]byte, man.dataLen)
	if _, err := io.ReadFull(dec, dataBuf); err != nil {
		return 0, err
	}

	indexPath := chunkio.IndexFileName(man.sourceID)
	dataPath := chunkio.DataFileName(man.sourceID)
	if fileExists(dir, indexPath) || fileExists(dir, dataPath) {
		return 0, ErrImportIDExists
	}

	if err := writeFile(dir, dataPath, dataBuf); err != nil {
		return 0, err
	}
	if err := writeFile(dir, indexPath, indexBuf); err != nil {
		return 0, err
	}

	c, _, _, err := chunkio.Open(dir, man.sourceID)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	ok, err := c.Verify()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("disktier: imported chunk %d failed verification", man.sourceID)
	}

	return man.sourceID, nil
}
