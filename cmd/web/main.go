package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/logger"
	"github.com/de-tools/ledger-atlas/pkg/server"
	"github.com/de-tools/ledger-atlas/pkg/services/config"
	"github.com/de-tools/ledger-atlas/pkg/services/financials"
	"github.com/de-tools/ledger-atlas/pkg/services/workflow"
	"github.com/de-tools/ledger-atlas/pkg/store/client"
	"github.com/de-tools/ledger-atlas/pkg/store/snapshot"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const workflowName = "portfolio-recompute"

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Ledger Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the settings file (LEDGER_* environment variables override it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(logger.Settings{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: settings.Log.Output,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := log.WithContext(cmd.Context())

	if err := settings.ResolveCredentials(ctx); err != nil {
		return err
	}

	ledger, err := client.New(client.Config{
		BaseURL:  settings.Service.BaseURL,
		Token:    settings.Service.Token,
		Timeout:  settings.Service.Timeout,
		RetryMax: settings.Service.RetryMax,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger client: %w", err)
	}
	log.Info().Str("base_url", settings.Service.BaseURL).Msg("ledger service configured")

	registry := financials.NewRegistry(ledger)
	deps := server.Dependencies{Financials: registry}

	var snapshots snapshot.Store
	if settings.Snapshots.DSN != "" {
		var db *sql.DB
		db, err = snapshot.NewDB(ctx, snapshot.Settings{DSN: settings.Snapshots.DSN})
		if err != nil {
			return fmt.Errorf("failed to open snapshot database: %w", err)
		}
		defer db.Close()

		snapshots, err = snapshot.NewStore(db)
		if err != nil {
			return fmt.Errorf("failed to create snapshot store: %w", err)
		}
		deps.History = snapshots
	} else {
		log.Warn().Msg("snapshots.dsn not set, financial history is disabled")
	}

	entities, err := settings.ScheduledEntities()
	if err != nil {
		return err
	}
	if len(entities) > 0 {
		runner := workflow.NewRunner(workflowName, entities, financials.NewPortfolio(ledger), snapshots)
		ctrl := workflow.NewController(runner, workflow.Settings{
			Schedule: settings.Schedule.Cron,
			Timezone: settings.Schedule.Timezone,
		})
		deps.Recomputer = ctrl

		if settings.Schedule.Cron != "" {
			if err := ctrl.Start(ctx); err != nil {
				return fmt.Errorf("failed to start workflow controller: %w", err)
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := ctrl.Cancel(stopCtx); err != nil {
					log.Error().Err(err).Msg("failed to stop workflow controller")
				}
			}()
		}
		log.Info().Int("entities", len(entities)).Msg("portfolio recompute configured")
	}

	api := server.NewWebAPI(log, server.Config{
		Addr:         settings.Server.Addr(),
		Dependencies: deps,
	})
	return api.Start()
}
