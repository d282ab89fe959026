package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/config"
	"github.com/pable/squadstats/internal/dataset"
	"github.com/pable/squadstats/internal/logging"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/pipeline"
	"github.com/pable/squadstats/internal/storage"
)

var (
	cfgPath     string
	datasetPath string
	formatFlag  string
	logLevel    string
	logFormat   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "squadstats",
	Short: "Call of Duty squad match statistics",
	Long: `Collect the matches a roster of players played together, enrich them with
per-player statistics and keep them in an append-only dataset for reporting.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file (default: squadstats.yaml if present)")
	pf.StringVar(&datasetPath, "dataset", "", "dataset path (overrides dataset.path)")
	pf.StringVar(&formatFlag, "format", "", "dataset format: csv or sqlite (overrides dataset.format)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if p := config.LoadDotEnv(); p != "" {
		logging.Debug().Str("path", p).Msg("loaded .env")
	}

	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dataset") {
		c.Dataset.Path = datasetPath
	}
	if flags.Changed("format") {
		c.Dataset.Format = formatFlag
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}

	logging.Init(logging.Config{Level: c.Log.Level, Format: c.Log.Format})
	cfg = c
	return nil
}

// datasetStore is a pipeline.Store that may hold resources.
type datasetStore interface {
	pipeline.Store
	Path() string
	Close() error
}

type csvStore struct{ *dataset.CSVStore }

func (csvStore) Close() error { return nil }

// openStore returns the configured dataset backend.
func openStore() (datasetStore, error) {
	path := cfg.Dataset.Path
	switch cfg.Dataset.Format {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		db, err := storage.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		return db, nil
	default:
		return csvStore{dataset.NewCSVStore(path)}, nil
	}
}

// loadDataset opens the configured store and reads the whole dataset.
func loadDataset(ctx context.Context) (*model.Dataset, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	d, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return d, nil
}
