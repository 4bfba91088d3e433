package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/logger"
)

// app carries state shared by subcommands once the root has loaded config.
type app struct {
	configPath string
	logLevel   string
	backend    string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the indexer CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Build and query positional inverted indexes",
		Long: `indexer builds a positional inverted index over directories of text
documents, sharding the corpus across parallel workers, and stores the result
in a segment file, a SQL database, or Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend (file, sql, redis)")

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err, "loading configuration")
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.backend != "" {
		cfg.Storage.Backend = a.backend
		if err := cfg.Validate(); err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, err, "--backend")
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}

// atLeast is cobra.MinimumNArgs reporting ErrInvalidInput.
func atLeast(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("%s requires at least %d %s", cmd.Name(), n, what))
		}
		return nil
	}
}
