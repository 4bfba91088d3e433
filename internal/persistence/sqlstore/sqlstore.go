// Package sqlstore persists indexes in a relational database, one row per
// (term, document) pair. It runs on any driver opened by pkg/database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

// schema returns the DDL for driver. Postings rows are keyed by their
// position in the snapshot, so term and doc_id can be unbounded text: a
// letters-only run or a document path has no length limit. MySQL TEXT stops
// at 64 KiB, so it gets LONGTEXT.
func schema(driver string) []string {
	text := "TEXT"
	if driver == "mysql" {
		text = "LONGTEXT"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS index_builds (
		name       VARCHAR(255) PRIMARY KEY,
		term_count INTEGER NOT NULL,
		doc_count  INTEGER NOT NULL,
		created_at BIGINT NOT NULL
	)`,
		`CREATE TABLE IF NOT EXISTS index_postings (
		index_name VARCHAR(255) NOT NULL,
		seq        BIGINT NOT NULL,
		term       ` + text + ` NOT NULL,
		doc_id     ` + text + ` NOT NULL,
		positions  ` + text + ` NOT NULL,
		PRIMARY KEY (index_name, seq)
	)`,
	}
}

type Store struct {
	client *database.Client
}

type buildRow struct {
	TermCount int `db:"term_count"`
	DocCount  int `db:"doc_count"`
}

type postingRow struct {
	Term      string `db:"term"`
	DocID     string `db:"doc_id"`
	Positions string `db:"positions"`
}

// New creates the schema if needed. Index names are limited to 255
// characters.
func New(ctx context.Context, client *database.Client) (*Store, error) {
	for _, stmt := range schema(client.DB.DriverName()) {
		if _, err := client.DB.ExecContext(ctx, stmt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "creating index schema")
		}
	}
	return &Store{client: client}, nil
}

// Store replaces the index named destination.
func (s *Store) Store(ctx context.Context, x *index.Index, destination string) error {
	entries := x.Snapshot()
	err := s.client.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM index_postings WHERE index_name = ?`), destination); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM index_builds WHERE name = ?`), destination); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO index_builds (name, term_count, doc_count, created_at) VALUES (?, ?, ?, ?)`),
			destination, len(entries), x.DocCount(), time.Now().Unix(),
		); err != nil {
			return err
		}

		stmt, err := tx.PreparexContext(ctx,
			tx.Rebind(`INSERT INTO index_postings (index_name, seq, term, doc_id, positions) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		seq := 0
		for _, entry := range entries {
			for _, p := range entry.Postings {
				positions, err := json.Marshal(p.Positions)
				if err != nil {
					return err
				}
				if _, err := stmt.ExecContext(ctx, destination, seq, entry.Term, p.DocID, string(positions)); err != nil {
					return err
				}
				seq++
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "storing index %q", destination)
	}
	return nil
}

// Load reads back the index named source.
func (s *Store) Load(ctx context.Context, source string) (*index.Index, error) {
	db := s.client.DB
	var build buildRow
	err := db.GetContext(ctx, &build,
		db.Rebind(`SELECT term_count, doc_count FROM index_builds WHERE name = ?`), source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrIO, "index %q does not exist", source)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "loading index %q", source)
	}

	var rows []postingRow
	if err := db.SelectContext(ctx, &rows,
		db.Rebind(`SELECT term, doc_id, positions FROM index_postings WHERE index_name = ? ORDER BY seq`),
		source,
	); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "loading postings of index %q", source)
	}

	var entries []index.TermEntry
	for _, row := range rows {
		var positions []int
		if err := json.Unmarshal([]byte(row.Positions), &positions); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrFormat, err, "index %q term %q document %q", source, row.Term, row.DocID)
		}
		if n := len(entries); n == 0 || entries[n-1].Term != row.Term {
			entries = append(entries, index.TermEntry{Term: row.Term})
		}
		last := &entries[len(entries)-1]
		last.Postings = append(last.Postings, index.Posting{DocID: row.DocID, Positions: positions})
	}
	if len(entries) != build.TermCount {
		return nil, apperrors.Newf(apperrors.ErrFormat, "index %q: expected %d terms, found %d",
			source, build.TermCount, len(entries))
	}
	return index.FromEntries(entries)
}
