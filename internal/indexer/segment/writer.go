// Package segment persists an Index as a single .spdx segment file: a fixed
// header, the JSON-encoded postings of every term, a JSON dictionary of
// term offsets, and a footer carrying CRC-32 checksums of both regions.
package segment

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// SegmentHeader is the 64-byte header written at the start of every segment.
//
//	[0:4]   magic        [4:8]   version
//	[8:12]  term count   [12:16] document count
//	[16:24] created at   [24:32] postings offset
//	[32:40] postings len [40:48] dictionary offset
//	[48:56] dictionary len
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
}

func (h SegmentHeader) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DictSize))
	return b
}

func unmarshalHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
	}
}

// footer mirrors the region sizes of the header so that a truncated or
// partially overwritten file is detected.
//
//	[0:4] dictionary crc  [4:8] postings crc
//	[8:16] dictionary offset  [16:24] dictionary len  [24:32] postings len
type footer struct {
	DictCRC    uint32
	PostCRC    uint32
	DictOffset int64
	DictSize   int64
	PostSize   int64
}

func (f footer) marshal() []byte {
	b := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(b[0:4], f.DictCRC)
	binary.LittleEndian.PutUint32(b[4:8], f.PostCRC)
	binary.LittleEndian.PutUint64(b[8:16], uint64(f.DictOffset))
	binary.LittleEndian.PutUint64(b[16:24], uint64(f.DictSize))
	binary.LittleEndian.PutUint64(b[24:32], uint64(f.PostSize))
	return b
}

func unmarshalFooter(b []byte) footer {
	return footer{
		DictCRC:    binary.LittleEndian.Uint32(b[0:4]),
		PostCRC:    binary.LittleEndian.Uint32(b[4:8]),
		DictOffset: int64(binary.LittleEndian.Uint64(b[8:16])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[24:32])),
	}
}

// DictEntry maps a term to its postings offset, length, and document
// frequency. Offsets are relative to the start of the postings region.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Write atomically replaces path with a segment holding entries, which must
// be sorted by term as returned by Index.Snapshot. The segment is written to
// a .tmp file and renamed on success, under an exclusive lock on path.lock.
func Write(ctx context.Context, path string, entries []index.TermEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "creating segment directory %s", dir)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "locking segment %s", path)
	}
	if !locked {
		return apperrors.Newf(apperrors.ErrIO, "segment %s is locked by another writer", path)
	}
	defer lock.Unlock()

	tmpPath := path + ".tmp"
	if err := writeFile(tmpPath, entries); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrap(apperrors.ErrIO, err, "renaming segment file %s", path)
	}
	return nil
}

func writeFile(path string, entries []index.TermEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "creating segment file %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	// Placeholder header, rewritten once the region sizes are known.
	if _, err := w.Write(make([]byte, HeaderSize)); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "writing header of %s", path)
	}

	postCRC := crc32.NewIEEE()
	var postSize int64
	dict := make([]DictEntry, 0, len(entries))
	docIDs := make(map[string]struct{})
	for _, entry := range entries {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := w.Write(data); err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, "writing postings for term %q", entry.Term)
		}
		postCRC.Write(data)
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: postSize,
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		postSize += int64(len(data))
		for _, p := range entry.Postings {
			docIDs[p.DocID] = struct{}{}
		}
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := w.Write(dictData); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "writing dictionary of %s", path)
	}

	dictOffset := int64(HeaderSize) + postSize
	ftr := footer{
		DictCRC:    crc32.ChecksumIEEE(dictData),
		PostCRC:    postCRC.Sum32(),
		DictOffset: dictOffset,
		DictSize:   int64(len(dictData)),
		PostSize:   postSize,
	}
	if _, err := w.Write(ftr.marshal()); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "writing footer of %s", path)
	}
	if err := w.Flush(); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "flushing %s", path)
	}

	header := SegmentHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(entries)),
		DocCount:   uint32(len(docIDs)),
		CreatedAt:  time.Now().Unix(),
		PostOffset: int64(HeaderSize),
		PostSize:   postSize,
		DictOffset: dictOffset,
		DictSize:   int64(len(dictData)),
	}
	if _, err := f.WriteAt(header.marshal(), 0); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "updating header of %s", path)
	}
	if err := f.Sync(); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "syncing segment file %s", path)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "closing segment file %s", path)
	}
	return nil
}
