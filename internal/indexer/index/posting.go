package index

import (
	"slices"
	"sort"
)

// Posting is the positions of one term within one document.
type Posting struct {
	DocID     string `json:"d"`
	Positions []int  `json:"p"`
}

type PostingList []Posting

// TermEntry is the snapshot form of a single term, shared by every
// persistence backend.
type TermEntry struct {
	Term     string      `json:"t"`
	Postings PostingList `json:"p"`
}

// PostingStore records, for one term, the sorted and duplicate-free
// positions at which it occurs in each document. A document key exists only
// while it holds at least one position.
type PostingStore struct {
	docs map[string][]int
}

func NewPostingStore() *PostingStore {
	return &PostingStore{docs: make(map[string][]int)}
}

// Add inserts pos into doc's positions unless already present.
func (s *PostingStore) Add(doc string, pos int) {
	if pos < 0 {
		return
	}
	positions := s.docs[doc]
	i, found := slices.BinarySearch(positions, pos)
	if found {
		return
	}
	s.docs[doc] = slices.Insert(positions, i, pos)
}

// Union returns a new store holding the per-document sorted union of s and
// other. Neither operand is modified and the result shares no slices with
// them.
func (s *PostingStore) Union(other *PostingStore) *PostingStore {
	out := &PostingStore{docs: make(map[string][]int, len(s.docs)+len(other.docs))}
	for doc, positions := range s.docs {
		out.docs[doc] = slices.Clone(positions)
	}
	for doc, positions := range other.docs {
		existing, ok := out.docs[doc]
		if !ok {
			out.docs[doc] = slices.Clone(positions)
			continue
		}
		out.docs[doc] = unionSorted(existing, positions)
	}
	return out
}

// unionSorted merges two strictly increasing slices into a new strictly
// increasing slice.
func unionSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Entries returns a copy of the document to positions mapping.
func (s *PostingStore) Entries() map[string][]int {
	out := make(map[string][]int, len(s.docs))
	for doc, positions := range s.docs {
		out[doc] = slices.Clone(positions)
	}
	return out
}

// Positions returns a copy of doc's positions, or nil.
func (s *PostingStore) Positions(doc string) []int {
	return slices.Clone(s.docs[doc])
}

func (s *PostingStore) DocCount() int {
	return len(s.docs)
}

func (s *PostingStore) Clone() *PostingStore {
	return &PostingStore{docs: s.Entries()}
}

func (s *PostingStore) Equal(other *PostingStore) bool {
	if len(s.docs) != len(other.docs) {
		return false
	}
	for doc, positions := range s.docs {
		theirs, ok := other.docs[doc]
		if !ok || !slices.Equal(positions, theirs) {
			return false
		}
	}
	return true
}

// Postings returns the store as a PostingList sorted by document ID.
func (s *PostingStore) Postings() PostingList {
	out := make(PostingList, 0, len(s.docs))
	for doc, positions := range s.docs {
		out = append(out, Posting{DocID: doc, Positions: slices.Clone(positions)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocID < out[j].DocID
	})
	return out
}
