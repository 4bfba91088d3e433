package segment

import (
	"context"
	"encoding/json"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

// Reader serves term lookups from a segment file without loading every
// posting into memory.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	footer   footer
	dict     []DictEntry
}

// OpenReader validates the layout and dictionary checksum of the segment at
// path. Structural problems are reported as ErrFormat, file system failures
// as ErrIO.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "opening segment file %s", path)
	}
	r, err := openReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func openReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "stat segment file %s", path)
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s is truncated (%d bytes)", path, size)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading header of %s", path)
	}
	header := unmarshalHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: bad magic bytes %x", path, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: unsupported version %d", path, header.Version)
	}

	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, size-int64(FooterSize)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading footer of %s", path)
	}
	ftr := unmarshalFooter(footerBytes)

	if header.PostOffset != int64(HeaderSize) ||
		header.PostSize < 0 || header.DictSize < 0 ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		header.DictOffset+header.DictSize+int64(FooterSize) != size ||
		ftr.DictOffset != header.DictOffset ||
		ftr.DictSize != header.DictSize ||
		ftr.PostSize != header.PostSize {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: inconsistent region layout", path)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading dictionary of %s", path)
	}
	if crc32.ChecksumIEEE(dictBytes) != ftr.DictCRC {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: dictionary checksum mismatch", path)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFormat, err, "parsing dictionary of %s", path)
	}
	if len(dict) != int(header.TermCount) {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: header lists %d terms, dictionary %d",
			path, header.TermCount, len(dict))
	}
	for i, entry := range dict {
		if i > 0 && dict[i-1].Term >= entry.Term {
			return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: dictionary not sorted at %q", path, entry.Term)
		}
		if entry.PostOffset < 0 || entry.PostLen < 0 || entry.PostOffset+int64(entry.PostLen) > header.PostSize {
			return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: postings of %q out of range", path, entry.Term)
		}
	}

	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		footer:   ftr,
		dict:     dict,
	}, nil
}

// Search returns the positions of term per document, or an error matching
// ErrNotFound when the segment does not contain term.
func (r *Reader) Search(term string) (map[string][]int, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "term %q is not indexed", term)
	}
	entry := r.dict[idx]
	data := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(data, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading postings of %q", term)
	}
	var postings index.PostingList
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFormat, err, "parsing postings of %q", term)
	}
	x, err := index.FromEntries([]index.TermEntry{{Term: term, Postings: postings}})
	if err != nil {
		return nil, err
	}
	return x.Search(term)
}

// ReadAll loads the whole segment into an Index after verifying the
// postings checksum.
func (r *Reader) ReadAll() (*index.Index, error) {
	data := make([]byte, r.header.PostSize)
	if _, err := r.file.ReadAt(data, r.header.PostOffset); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading postings of %s", r.filePath)
	}
	if crc32.ChecksumIEEE(data) != r.footer.PostCRC {
		return nil, apperrors.Newf(apperrors.ErrFormat, "segment %s: postings checksum mismatch", r.filePath)
	}
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		var postings index.PostingList
		if err := json.Unmarshal(data[d.PostOffset:d.PostOffset+int64(d.PostLen)], &postings); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrFormat, err, "parsing postings of %q", d.Term)
		}
		if len(postings) != d.DocFreq {
			return nil, apperrors.Newf(apperrors.ErrFormat, "term %q: dictionary lists %d documents, postings %d",
				d.Term, d.DocFreq, len(postings))
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	return index.FromEntries(entries)
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Store is the file-backed persistence adapter. Destinations and sources
// are segment file paths.
type Store struct{}

func (Store) Store(ctx context.Context, x *index.Index, destination string) error {
	return Write(ctx, destination, x.Snapshot())
}

func (Store) Load(ctx context.Context, source string) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := OpenReader(source)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
