// Package index implements the in-memory positional inverted index: a
// mapping from term to PostingStore, built one document at a time and
// combined with other indexes through a commutative Merge.
//
// An Index is owned by a single goroutine. Concurrent builders each own
// their own Index and hand it to Merge once they are done with it.
package index

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

type Index struct {
	terms map[string]*PostingStore
}

func New() *Index {
	return &Index{
		terms: make(map[string]*PostingStore),
	}
}

// AddDocument records every occurrence of every token of doc. The position
// of a token is its offset in tokens. Tokens must be Normalize output:
// non-empty runs of lowercase ASCII letters. An invalid doc ID or token is
// reported as ErrInvalidInput and leaves the index unchanged, as does an
// empty token slice.
func (x *Index) AddDocument(doc string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if doc == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "document ID must not be empty")
	}
	for pos, term := range tokens {
		if !validTerm(term) {
			return apperrors.Newf(apperrors.ErrInvalidInput, "document %q: token %d (%q) is not normalized", doc, pos, term)
		}
	}
	for pos, term := range tokens {
		store, exists := x.terms[term]
		if !exists {
			store = NewPostingStore()
			x.terms[term] = store
		}
		store.Add(doc, pos)
	}
	return nil
}

// Search returns the positions of term per document. A term that was never
// indexed yields an error matching ErrNotFound rather than an empty result.
func (x *Index) Search(term string) (map[string][]int, error) {
	store, exists := x.terms[term]
	if !exists {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "term %q is not indexed", term)
	}
	return store.Entries(), nil
}

// Merge returns a new Index holding the union of x and other. Terms present
// in both are combined with PostingStore.Union; every other store is copied.
// Neither operand is modified, and the result aliases no store of either.
func (x *Index) Merge(other *Index) *Index {
	out := &Index{terms: make(map[string]*PostingStore, len(x.terms)+len(other.terms))}
	for term, store := range x.terms {
		if theirs, ok := other.terms[term]; ok {
			out.terms[term] = store.Union(theirs)
			continue
		}
		out.terms[term] = store.Clone()
	}
	for term, store := range other.terms {
		if _, ok := out.terms[term]; !ok {
			out.terms[term] = store.Clone()
		}
	}
	return out
}

// Terms returns the indexed terms in lexical order.
func (x *Index) Terms() []string {
	terms := make([]string, 0, len(x.terms))
	for term := range x.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (x *Index) TermCount() int {
	return len(x.terms)
}

// DocCount returns the number of distinct documents with at least one
// indexed token.
func (x *Index) DocCount() int {
	docs := make(map[string]struct{})
	for _, store := range x.terms {
		for doc := range store.docs {
			docs[doc] = struct{}{}
		}
	}
	return len(docs)
}

// Snapshot returns the index sorted by term, with each term's postings
// sorted by document ID.
func (x *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for term, store := range x.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: store.Postings(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (x *Index) Equal(other *Index) bool {
	if len(x.terms) != len(other.terms) {
		return false
	}
	for term, store := range x.terms {
		theirs, ok := other.terms[term]
		if !ok || !store.Equal(theirs) {
			return false
		}
	}
	return true
}

// FromEntries rebuilds an Index from a snapshot, typically one read back
// from storage. Any entry that breaks the index invariants is reported as
// ErrFormat.
func FromEntries(entries []TermEntry) (*Index, error) {
	x := New()
	for _, entry := range entries {
		if !validTerm(entry.Term) {
			return nil, apperrors.Newf(apperrors.ErrFormat, "invalid term %q", entry.Term)
		}
		if _, dup := x.terms[entry.Term]; dup {
			return nil, apperrors.Newf(apperrors.ErrFormat, "duplicate term %q", entry.Term)
		}
		if len(entry.Postings) == 0 {
			return nil, apperrors.Newf(apperrors.ErrFormat, "term %q has no postings", entry.Term)
		}
		store := NewPostingStore()
		for _, p := range entry.Postings {
			if p.DocID == "" {
				return nil, apperrors.Newf(apperrors.ErrFormat, "term %q has a posting without document", entry.Term)
			}
			if _, dup := store.docs[p.DocID]; dup {
				return nil, apperrors.Newf(apperrors.ErrFormat, "term %q lists document %q twice", entry.Term, p.DocID)
			}
			if !strictlyIncreasing(p.Positions) {
				return nil, apperrors.Newf(apperrors.ErrFormat,
					"term %q document %q: positions must be non-empty, non-negative and strictly increasing",
					entry.Term, p.DocID)
			}
			store.docs[p.DocID] = append([]int(nil), p.Positions...)
		}
		x.terms[entry.Term] = store
	}
	return x, nil
}

func validTerm(term string) bool {
	if term == "" {
		return false
	}
	for i := 0; i < len(term); i++ {
		if term[i] < 'a' || term[i] > 'z' {
			return false
		}
	}
	return true
}

func strictlyIncreasing(positions []int) bool {
	if len(positions) == 0 || positions[0] < 0 {
		return false
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			return false
		}
	}
	return true
}
