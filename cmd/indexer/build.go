package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/persistence"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/metrics"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		workers     int
		destination string
		extensions  []string
	)
	cmd := &cobra.Command{
		Use:   "build DIR...",
		Short: "Build an index over one or more corpus directories",
		Args:  atLeast(1, "corpus directory"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("workers") {
				cfg.Indexer.Workers = workers
			}
			if destination != "" {
				cfg.Storage.Destination = destination
			}
			if len(extensions) > 0 {
				cfg.Indexer.FileExtensions = extensions
			}
			return runBuild(cmd, a, args)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of parallel shard workers (default from config)")
	cmd.Flags().StringVarP(&destination, "out", "o", "", "index destination: file path, or index name for sql/redis")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "only index files with these extensions")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app, dirs []string) error {
	cfg := a.cfg
	buildID := fmt.Sprintf("build-%d", time.Now().UnixNano())
	ctx := logger.WithBuildID(cmd.Context(), buildID)
	log := logger.FromContext(ctx).With("component", "cli")
	start := time.Now()

	locations, err := source.List(ctx, dirs, cfg.Indexer.FileExtensions)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	builder, err := indexer.NewBuilder(cfg.Indexer.Workers, indexer.WithMetrics(m))
	if err != nil {
		return err
	}
	idx, err := builder.Build(ctx, locations)
	if err != nil {
		return err
	}
	buildElapsed := time.Since(start)

	backend, err := persistence.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.Store(ctx, idx, cfg.Storage.Destination); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "indexed %d documents (%d terms) with %d workers in %s\n",
		idx.DocCount(), idx.TermCount(), cfg.Indexer.Workers, buildElapsed.Round(time.Microsecond))
	fmt.Fprintf(out, "stored index at %s (%s backend)\n", cfg.Storage.Destination, cfg.Storage.Backend)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BuildComplete)
		defer producer.Close()
		ev := indexer.BuildCompleted{
			BuildID:     buildID,
			Backend:     cfg.Storage.Backend,
			Destination: cfg.Storage.Destination,
			Documents:   idx.DocCount(),
			Terms:       idx.TermCount(),
			Workers:     cfg.Indexer.Workers,
			DurationMs:  time.Since(start).Milliseconds(),
			CompletedAt: time.Now().UTC(),
		}
		if err := indexer.PublishCompleted(ctx, producer, ev); err != nil {
			log.Warn("build completion event not published", "error", err)
		}
	}
	return nil
}
