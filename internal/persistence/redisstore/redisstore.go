// Package redisstore persists an index as a Redis hash keyed by term, with
// each field holding that term's JSON postings. A companion meta key records
// the term count and marks the index as existing even when it is empty.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/redis"
)

type Store struct {
	client *pkgredis.Client
	prefix string
}

type meta struct {
	Terms     int   `json:"terms"`
	Docs      int   `json:"docs"`
	CreatedAt int64 `json:"created_at"`
}

func New(client *pkgredis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

func (s *Store) keys(name string) (string, string) {
	key := fmt.Sprintf("%s:index:%s", s.prefix, name)
	return key, key + ":meta"
}

// Store replaces the index named destination in a single transaction.
func (s *Store) Store(ctx context.Context, x *index.Index, destination string) error {
	key, metaKey := s.keys(destination)
	entries := x.Snapshot()
	fields := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		fields[entry.Term] = string(data)
	}
	m, err := json.Marshal(meta{Terms: len(entries), Docs: x.DocCount(), CreatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}
	if err := s.client.ReplaceHash(ctx, key, fields, metaKey, string(m)); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "storing index %q", destination)
	}
	return nil
}

// Load reads back the index named source.
func (s *Store) Load(ctx context.Context, source string) (*index.Index, error) {
	key, metaKey := s.keys(source)
	raw, err := s.client.Get(ctx, metaKey)
	if pkgredis.IsNilError(err) {
		return nil, apperrors.Newf(apperrors.ErrIO, "index %q does not exist", source)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "loading index %q", source)
	}
	var m meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFormat, err, "index %q metadata", source)
	}

	fields, err := s.client.HGetAll(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "loading postings of index %q", source)
	}
	if len(fields) != m.Terms {
		return nil, apperrors.Newf(apperrors.ErrFormat, "index %q: expected %d terms, found %d", source, m.Terms, len(fields))
	}
	entries := make([]index.TermEntry, 0, len(fields))
	for term, data := range fields {
		var postings index.PostingList
		if err := json.Unmarshal([]byte(data), &postings); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrFormat, err, "index %q term %q", source, term)
		}
		entries = append(entries, index.TermEntry{Term: term, Postings: postings})
	}
	return index.FromEntries(entries)
}
