// Package indexer builds a positional inverted index over a corpus. The
// corpus is split into contiguous shards, each shard is indexed by its own
// goroutine into an Index it owns exclusively, and the partial indexes are
// reduced into one with index.Merge.
package indexer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/metrics"
)

// State is the lifecycle stage of a build.
type State int32

const (
	StatePending State = iota
	StateSharding
	StateBuilding
	StateReducing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSharding:
		return "sharding"
	case StateBuilding:
		return "building"
	case StateReducing:
		return "reducing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Builder runs one build at a time. State reports the stage of the most
// recent build.
type Builder struct {
	workers int
	reader  source.Reader
	metrics *metrics.Metrics
	state   atomic.Int32
}

type Option func(*Builder)

// WithReader sets the document reader. The default reads local files.
func WithReader(r source.Reader) Option {
	return func(b *Builder) {
		b.reader = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(workers int, opts ...Option) (*Builder, error) {
	if workers < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "worker count must be positive, got %d", workers)
	}
	b := &Builder{
		workers: workers,
		reader:  source.FileReader{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Builder) State() State {
	return State(b.state.Load())
}

func (b *Builder) setState(log *slog.Logger, s State) {
	b.state.Store(int32(s))
	log.Debug("build state changed", "state", s.String())
}

// Build indexes the documents at locations and returns the reduced Index.
// On any failure no Index is returned and the error matches ErrBuild; the
// first worker error is reported without waiting for the other shards.
func (b *Builder) Build(ctx context.Context, locations []string) (*index.Index, error) {
	log := logger.FromContext(ctx).With("component", "builder")
	start := time.Now()
	b.setState(log, StatePending)

	fail := func(err error) (*index.Index, error) {
		b.setState(log, StateFailed)
		b.metrics.ObserveBuild(StateFailed.String(), time.Since(start), 0)
		log.Error("index build failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	b.setState(log, StateSharding)
	ranges, err := shard.Partition(len(locations), b.workers)
	if err != nil {
		return fail(err)
	}
	log.Info("corpus partitioned",
		"documents", len(locations),
		"shards", len(ranges),
	)

	b.setState(log, StateBuilding)
	parts, err := b.buildShards(ctx, log, locations, ranges)
	if err != nil {
		return fail(err)
	}

	b.setState(log, StateReducing)
	if err := ctx.Err(); err != nil {
		return fail(apperrors.Wrap(apperrors.ErrBuild, err, "build cancelled before reduction"))
	}
	final := Reduce(parts)
	if len(parts) > 1 {
		b.metrics.ObserveMerges(len(parts) - 1)
	}

	b.setState(log, StateDone)
	elapsed := time.Since(start)
	b.metrics.ObserveBuild(StateDone.String(), elapsed, final.TermCount())
	log.Info("index build complete",
		"terms", final.TermCount(),
		"documents", final.DocCount(),
		"shards", len(parts),
		"elapsed", elapsed,
	)
	return final, nil
}

// buildShards runs one goroutine per shard. It returns as soon as any shard
// fails; the remaining workers observe the cancelled group context before
// their next document and exit on their own.
func (b *Builder) buildShards(ctx context.Context, log *slog.Logger, locations []string, ranges []shard.Range) ([]*index.Index, error) {
	g, gctx := errgroup.WithContext(ctx)
	parts := make([]*index.Index, len(ranges))
	firstErr := make(chan error, 1)

	for _, r := range ranges {
		g.Go(func() error {
			part, err := b.buildShard(gctx, log, r, locations[r.Start:r.End])
			if err != nil {
				select {
				case firstErr <- err:
				default:
				}
				return err
			}
			parts[r.ID] = part
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return parts, nil
	case err := <-firstErr:
		return nil, err
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.ErrBuild, ctx.Err(), "build cancelled")
	}
}

func (b *Builder) buildShard(ctx context.Context, log *slog.Logger, r shard.Range, locations []string) (*index.Index, error) {
	start := time.Now()
	part := index.New()
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrBuild, err, "shard %d stopped before document %s", r.ID, loc)
		}
		text, err := source.ReadDocument(ctx, b.reader, loc)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrBuild, err, "shard %d: document %s", r.ID, loc)
		}
		if err := part.AddDocument(loc, tokenizer.Normalize(text)); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrBuild, err, "shard %d: document %s", r.ID, loc)
		}
	}
	elapsed := time.Since(start)
	b.metrics.ObserveShard(r.ID, elapsed, len(locations))
	log.Debug("shard built",
		"shard_id", r.ID,
		"documents", len(locations),
		"terms", part.TermCount(),
		"elapsed", elapsed,
	)
	return part, nil
}

// Reduce merges partial indexes into one. Merge is commutative and
// associative, so the order of parts does not affect the result.
func Reduce(parts []*index.Index) *index.Index {
	final := index.New()
	for _, part := range parts {
		if part == nil {
			continue
		}
		final = final.Merge(part)
	}
	return final
}
