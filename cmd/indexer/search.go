package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/persistence"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

func newSearchCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "search WORD...",
		Short: "Print the documents and positions of each word",
		Args:  atLeast(1, "word"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				source = a.cfg.Storage.Destination
			}
			var terms []string
			for _, arg := range args {
				terms = append(terms, tokenizer.Normalize(arg)...)
			}
			if len(terms) == 0 {
				return apperrors.New(apperrors.ErrInvalidInput, "no searchable words in query")
			}

			lookup, closeFn, err := openLookup(cmd, a, source)
			if err != nil {
				return err
			}
			defer closeFn()

			var firstErr error
			for _, term := range terms {
				hits, err := lookup(term)
				if apperrors.Is(err, apperrors.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not indexed\n", term)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if err != nil {
					return err
				}
				printHits(cmd.OutOrStdout(), term, hits)
			}
			return firstErr
		},
	}
	cmd.Flags().StringVarP(&source, "index", "i", "", "index source: file path, or index name for sql/redis")
	return cmd
}

// openLookup reads single terms straight from a segment file and loads the
// whole index for the other backends.
func openLookup(cmd *cobra.Command, a *app, source string) (func(string) (map[string][]int, error), func() error, error) {
	if a.cfg.Storage.Backend == "file" {
		r, err := segment.OpenReader(source)
		if err != nil {
			return nil, nil, err
		}
		return r.Search, r.Close, nil
	}
	backend, err := persistence.Open(cmd.Context(), a.cfg)
	if err != nil {
		return nil, nil, err
	}
	idx, err := backend.Load(cmd.Context(), source)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return idx.Search, backend.Close, nil
}

func printHits(w io.Writer, term string, hits map[string][]int) {
	docs := make([]string, 0, len(hits))
	for doc := range hits {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	fmt.Fprintf(w, "%s:\n", term)
	for _, doc := range docs {
		positions := make([]string, len(hits[doc]))
		for i, p := range hits[doc] {
			positions[i] = fmt.Sprint(p)
		}
		fmt.Fprintf(w, "  %s: %s\n", doc, strings.Join(positions, " "))
	}
}
