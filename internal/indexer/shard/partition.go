// Package shard splits an ordered corpus into the contiguous ranges that the
// builder's workers index independently.
package shard

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

// Range is the half-open interval [Start, End) of document offsets owned by
// one shard.
type Range struct {
	ID    int
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits n documents into workers contiguous shards of n/workers
// documents each. The last shard absorbs the remainder so that every
// document in [0, n) belongs to exactly one shard. A worker count above n is
// lowered to n, and an empty corpus has no shards.
func Partition(n, workers int) ([]Range, error) {
	if workers < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "worker count must be positive, got %d", workers)
	}
	if n < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "document count must not be negative, got %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	if workers > n {
		workers = n
	}
	size := n / workers
	ranges := make([]Range, workers)
	for i := 0; i < workers; i++ {
		ranges[i] = Range{ID: i, Start: i * size, End: (i + 1) * size}
	}
	ranges[workers-1].End = n
	return ranges, nil
}
