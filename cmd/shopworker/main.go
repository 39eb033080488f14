package main

import (
	"context"
	"fmt"
	"os"

	"shopmetrics-backend/lib/configutil"
	configsqlite "shopmetrics-backend/lib/configutil/sqlite"
	"shopmetrics-backend/lib/osutil"
	"shopmetrics-backend/lib/restyutil"
	"shopmetrics-backend/lib/scrapers/trendtrack"
	"shopmetrics-backend/lib/stealth"
	"shopmetrics-backend/lib/telemetry"
	"shopmetrics-backend/services/metricstore"
	metricstoredb "shopmetrics-backend/services/metricstore/db"
	"shopmetrics-backend/services/worker"

	"github.com/spf13/cobra"
)

type Config struct {
	Database  configsqlite.Struct        `json:"database"`
	Dashboard trendtrack.SessionOptions  `json:"dashboard"`
	Stealth   stealth.Options            `json:"stealth"`
	Debug     bool                       `json:"debug"`
	// directory for http transcripts, empty disables them
	TranscriptDir string `json:"transcript_dir"`
}

var (
	flagWorkerId   int
	flagStartId    int64
	flagEndId      int64
	flagNumWorkers int
	flagConfig     string
)

var rootCmd = &cobra.Command{
	Use:   "shopworker",
	Short: "shopworker scrapes one partition of the shop table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().IntVar(&flagWorkerId, "worker-id", 0, "index of this worker")
	rootCmd.Flags().Int64Var(&flagStartId, "start-id", 0, "first shop id of the assigned range")
	rootCmd.Flags().Int64Var(&flagEndId, "end-id", 0, "last shop id of the assigned range")
	rootCmd.Flags().IntVar(&flagNumWorkers, "num-workers", 0, "derive the range from a partition of the whole table")
	rootCmd.Flags().StringVar(&flagConfig, "config", "config.json5", "path to the worker config file")
}

func run() error {
	ctx := osutil.SignalContext()

	config, err := configutil.ReadConfig[Config](flagConfig)
	if err != nil {
		osutil.Fatal("failed to read config", err)
	}
	telemetry.InitSlog(config.Debug)

	database, err := config.Database.OpenDB(metricstoredb.Schema)
	if err != nil {
		osutil.Fatal("failed to open database", err)
	}
	defer database.Close()

	t, err := telemetry.SetupFromEnv(ctx, fmt.Sprintf("shopworker-%d", flagWorkerId))
	if err != nil {
		osutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	store := metricstore.NewStore(database)

	rng, err := assignedRange(ctx, store)
	if err != nil {
		osutil.Fatal("failed to compute the assigned shop range", err)
	}

	throttle := stealth.New(config.Stealth)
	sessionOpts := config.Dashboard
	sessionOpts.Throttle = throttle
	if config.TranscriptDir != "" {
		sessionOpts.Transcript = restyutil.NewFilesystemOutput(config.TranscriptDir)
	}

	session, err := trendtrack.NewSession(sessionOpts)
	if err != nil {
		osutil.Fatal("failed to create the scraping session", err)
	}
	defer session.Close()

	runner := worker.NewRunner(worker.RunnerOptions{
		WorkerId: flagWorkerId,
		Store:    store,
		Throttle: throttle,
		Extractors: []trendtrack.Extractor{
			trendtrack.NewTrafficExtractor(session),
			trendtrack.NewMarketExtractor(session),
			trendtrack.NewEngagementExtractor(session),
			trendtrack.NewAdsExtractor(session),
			trendtrack.NewAuxiliaryExtractor(throttle),
		},
	})

	_, err = runner.Run(ctx, rng)
	return err
}

// assignedRange resolves the shop range either from explicit bounds or
// from this worker's slice of a table-wide partition.
func assignedRange(ctx context.Context, store metricstore.Store) (worker.Range, error) {
	if flagEndId > 0 {
		return worker.Range{Start: flagStartId, End: flagEndId}, nil
	}
	if flagNumWorkers <= 0 {
		return worker.Range{}, fmt.Errorf("either --start-id/--end-id or --num-workers is required")
	}
	if flagWorkerId < 0 || flagWorkerId >= flagNumWorkers {
		return worker.Range{}, fmt.Errorf("--worker-id %d is out of range for %d workers", flagWorkerId, flagNumWorkers)
	}

	maxID, err := store.MaxShopID(ctx)
	if err != nil {
		return worker.Range{}, err
	}
	ranges := worker.Partition(1, maxID, flagNumWorkers)
	return ranges[flagWorkerId], nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
