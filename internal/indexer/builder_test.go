package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/metrics"
)

func eightDocCorpus() source.MemoryReader {
	return source.MemoryReader{
		"doc1": "The cat sat on the mat.",
		"doc2": "The cat ran after the dog!",
		"doc3": "A dog, a cat, and a bird.",
		"doc4": "Birds sing; cats sleep; dogs bark.",
		"doc5": "the the the",
		"doc6": "",
		"doc7": "Mat 42 and rug 7, the mat again",
		"doc8": "Sat ran sat ran sat",
	}
}

func TestBuildScenario(t *testing.T) {
	corpus := source.MemoryReader{
		"doc1": "the cat sat",
		"doc2": "the cat ran",
	}
	b, err := NewBuilder(2, WithReader(corpus))
	require.NoError(t, err)

	x, err := b.Build(context.Background(), corpus.Locations())
	require.NoError(t, err)
	assert.Equal(t, StateDone, b.State())

	got, err := x.Search("the")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"doc1": {0}, "doc2": {0}}, got)

	got, err = x.Search("cat")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"doc1": {1}, "doc2": {1}}, got)

	got, err = x.Search("sat")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"doc1": {2}}, got)

	_, err = x.Search("dog")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBuildOneWorkerMatchesFourWorkers(t *testing.T) {
	corpus := eightDocCorpus()
	locations := corpus.Locations()

	single, err := NewBuilder(1, WithReader(corpus))
	require.NoError(t, err)
	want, err := single.Build(context.Background(), locations)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 4, 8, 16} {
		b, err := NewBuilder(workers, WithReader(corpus))
		require.NoError(t, err)
		got, err := b.Build(context.Background(), locations)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want.Snapshot(), got.Snapshot()), "workers=%d", workers)
	}

	mat, err := want.Search("mat")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"doc1": {5}, "doc7": {0, 4}}, mat)
}

func TestReduceOrderIndependent(t *testing.T) {
	corpus := eightDocCorpus()
	locations := corpus.Locations()

	whole := index.New()
	for _, loc := range locations {
		whole.AddDocument(loc, tokenizer.Normalize(corpus[loc]))
	}

	r := rand.New(rand.NewSource(3))
	for w := 1; w <= len(locations); w++ {
		ranges, err := shard.Partition(len(locations), w)
		require.NoError(t, err)
		parts := make([]*index.Index, len(ranges))
		for i, rg := range ranges {
			parts[i] = index.New()
			for _, loc := range locations[rg.Start:rg.End] {
				parts[i].AddDocument(loc, tokenizer.Normalize(corpus[loc]))
			}
		}
		for trial := 0; trial < 10; trial++ {
			r.Shuffle(len(parts), func(i, j int) { parts[i], parts[j] = parts[j], parts[i] })
			got := Reduce(parts)
			require.True(t, whole.Equal(got), "workers=%d trial=%d\n%s", w, trial,
				cmp.Diff(whole.Snapshot(), got.Snapshot()))
		}
	}
}

func TestReduceEmpty(t *testing.T) {
	x := Reduce(nil)
	assert.Equal(t, 0, x.TermCount())
}

func TestBuildEmptyCorpus(t *testing.T) {
	b, err := NewBuilder(4, WithReader(source.MemoryReader{}))
	require.NoError(t, err)
	x, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, x.TermCount())
	assert.Equal(t, StateDone, b.State())
}

func TestNewBuilderRejectsNonPositiveWorkers(t *testing.T) {
	_, err := NewBuilder(0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// gatedReader fails on one document and blocks on every document whose name
// starts with "slow" until release is closed.
type gatedReader struct {
	corpus  source.MemoryReader
	failOn  string
	release chan struct{}
}

func (g *gatedReader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == g.failOn {
		return nil, apperrors.Newf(apperrors.ErrIO, "disk error reading %s", location)
	}
	if strings.HasPrefix(location, "slow") {
		<-g.release
	}
	return g.corpus.Open(ctx, location)
}

func TestBuildFailsFastWithoutAwaitingOtherShards(t *testing.T) {
	corpus := source.MemoryReader{
		"bad1":  "x",
		"bad2":  "y",
		"slow1": "z",
		"slow2": "w",
	}
	reader := &gatedReader{corpus: corpus, failOn: "bad1", release: make(chan struct{})}
	defer close(reader.release)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	b, err := NewBuilder(2, WithReader(reader), WithMetrics(m))
	require.NoError(t, err)

	type result struct {
		x   *index.Index
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		x, err := b.Build(context.Background(), corpus.Locations())
		resCh <- result{x, err}
	}()

	select {
	case res := <-resCh:
		require.Error(t, res.err)
		assert.Nil(t, res.x)
		assert.True(t, errors.Is(res.err, apperrors.ErrBuild))
		assert.True(t, errors.Is(res.err, apperrors.ErrIO))
		assert.Contains(t, res.err.Error(), "bad1")
		assert.Equal(t, StateFailed, b.State())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("failed")))
	case <-time.After(5 * time.Second):
		t.Fatal("build waited for a blocked shard after another shard failed")
	}
}

func TestBuildCancelled(t *testing.T) {
	corpus := eightDocCorpus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBuilder(2, WithReader(corpus))
	require.NoError(t, err)
	x, err := b.Build(ctx, corpus.Locations())
	require.Error(t, err)
	assert.Nil(t, x)
	assert.ErrorIs(t, err, apperrors.ErrBuild)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRecordsMetrics(t *testing.T) {
	corpus := eightDocCorpus()
	m := metrics.New(prometheus.NewRegistry())
	b, err := NewBuilder(4, WithReader(corpus), WithMetrics(m))
	require.NoError(t, err)

	x, err := b.Build(context.Background(), corpus.Locations())
	require.NoError(t, err)

	assert.Equal(t, 8.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MergesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("done")))
	assert.Equal(t, float64(x.TermCount()), testutil.ToFloat64(m.IndexTerms))
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StatePending:  "pending",
		StateSharding: "sharding",
		StateBuilding: "building",
		StateReducing: "reducing",
		StateDone:     "done",
		StateFailed:   "failed",
		State(42):     "unknown",
	} {
		assert.Equal(t, want, s.String(), fmt.Sprint(int(s)))
	}
}
