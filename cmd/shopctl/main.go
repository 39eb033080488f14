package main

import (
	"context"
	"fmt"
	"os"

	"shopmetrics-backend/lib/configutil"
	configsqlite "shopmetrics-backend/lib/configutil/sqlite"
	"shopmetrics-backend/lib/osutil"
	"shopmetrics-backend/lib/telemetry"
	"shopmetrics-backend/services/metricstore"
	metricstoredb "shopmetrics-backend/services/metricstore/db"
	"shopmetrics-backend/services/orchestrator"

	"github.com/spf13/cobra"
)

type Config struct {
	Database     configsqlite.Struct `json:"database"`
	Orchestrator orchestrator.Config `json:"orchestrator"`
	Debug        bool                `json:"debug"`
}

var flagConfig string

func setup() (*orchestrator.Orchestrator, context.Context) {
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

	store := metricstore.NewStore(database)
	return orchestrator.New(config.Orchestrator, store), ctx
}

var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "shopctl manages the scraping worker fleet.",
}

var flagWait bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Partition the shop table and spawn the worker fleet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, ctx := setup()
		state, err := o.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("started %d workers\n", len(state.Workers))
		if !flagWait {
			return nil
		}

		if err := o.Monitor(ctx); err != nil {
			return err
		}
		report, err := o.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Print(orchestrator.RenderStatus(report))
		return o.SendReport(ctx, report)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every tracked worker process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, ctx := setup()
		return o.Stop(ctx)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop the fleet and start it again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, ctx := setup()
		state, err := o.Restart(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("restarted with %d workers\n", len(state.Workers))
		return nil
	},
}

var flagEmail bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report fleet liveness and scraping progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, ctx := setup()
		report, err := o.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Print(orchestrator.RenderStatus(report))
		if flagEmail {
			return o.SendReport(ctx, report)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.json5", "path to the orchestrator config file")
	startCmd.Flags().BoolVar(&flagWait, "wait", false, "block until the fleet exits, recording each worker's return code")
	statusCmd.Flags().BoolVar(&flagEmail, "email", false, "also mail the report to the configured recipients")
	rootCmd.AddCommand(startCmd, stopCmd, restartCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
