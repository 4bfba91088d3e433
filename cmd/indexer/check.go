package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/kafka"
	pkgredis "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/redis"
)

func newCheckCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the configured storage backend and event broker are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := health.NewChecker(timeout)
			checker.Register("storage/"+a.cfg.Storage.Backend, storageCheck(a.cfg))
			if a.cfg.Kafka.Enabled {
				brokers := a.cfg.Kafka.Brokers
				checker.Register("kafka", func(ctx context.Context) error {
					return kafka.Ping(ctx, brokers)
				})
			} else {
				checker.Disable("kafka", "build events disabled")
			}

			report := checker.Run(cmd.Context())
			out := cmd.OutOrStdout()
			for _, c := range report.Components {
				line := fmt.Sprintf("%-16s %-8s", c.Name, c.Status)
				if c.Status != health.StatusDisabled {
					line += " " + c.Latency.Round(time.Microsecond).String()
				}
				if c.Message != "" {
					line += "  " + c.Message
				}
				fmt.Fprintln(out, line)
			}
			if report.Status == health.StatusDown {
				return apperrors.New(apperrors.ErrIO, "one or more dependencies are unreachable")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-check timeout")
	return cmd
}

func storageCheck(cfg *config.Config) health.Check {
	switch cfg.Storage.Backend {
	case "sql":
		return func(ctx context.Context) error {
			client, err := database.New(ctx, cfg.Database)
			if err != nil {
				return err
			}
			return client.Close()
		}
	case "redis":
		return func(ctx context.Context) error {
			client, err := pkgredis.NewClient(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			return client.Close()
		}
	default:
		dir := filepath.Dir(cfg.Storage.Destination)
		return func(ctx context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		}
	}
}
