package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/ledger-atlas/pkg/logger"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/ledger-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/ledger-atlas/pkg/services/config"
	"github.com/de-tools/ledger-atlas/pkg/services/financials"
	"github.com/de-tools/ledger-atlas/pkg/store/client"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	service  commands.Service
	settings *config.Settings
	output   io.Writer
	reporter *export.Reporter
	closer   io.Closer
	rootCmd  *cobra.Command

	configPath string
	currency   string
}

// Options contain configuration for the CLI. When Service is nil it is built
// from the loaded settings before a command runs.
type Options struct {
	Service  commands.Service
	Settings *config.Settings
	Output   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		service:  opts.Service,
		settings: opts.Settings,
		output:   opts.Output,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	defer func() {
		if cli.closer != nil {
			_ = cli.closer.Close()
		}
	}()
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "ledger",
		Short:             "Financial reconciliation for projects and contracts",
		SilenceUsage:      true,
		PersistentPreRunE: cli.bootstrap,
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to the settings file (YAML)")
	cmd.PersistentFlags().StringVar(&cli.currency, "currency", "USD", "Currency used to display amounts")
	cmd.SetOut(cli.output)

	cmd.AddCommand(commands.NewEntityCmd(cli))
	cmd.AddCommand(commands.NewPortfolioCmd(cli))

	return cmd
}

func (cli *CLI) bootstrap(cmd *cobra.Command, _ []string) error {
	cli.reporter = export.NewReporter(cli.output, cli.currency)

	if cli.settings == nil {
		settings, err := config.Load(cli.configPath)
		if err != nil {
			return err
		}
		cli.settings = settings
	}

	log, closer, err := logger.New(logger.Settings{
		Level:  cli.settings.Log.Level,
		Format: cli.settings.Log.Format,
		Output: cli.settings.Log.Output,
	})
	if err != nil {
		return err
	}
	cli.closer = closer
	ctx := log.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	if cli.service != nil {
		return nil
	}

	if err := cli.settings.ResolveCredentials(ctx); err != nil {
		return err
	}
	ledger, err := client.New(client.Config{
		BaseURL:  cli.settings.Service.BaseURL,
		Token:    cli.settings.Service.Token,
		Timeout:  cli.settings.Service.Timeout,
		RetryMax: cli.settings.Service.RetryMax,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger client: %w", err)
	}
	cli.service = financials.NewRegistry(ledger)
	return nil
}

func (cli *CLI) Service() (commands.Service, error) {
	if cli.service == nil {
		return nil, fmt.Errorf("financials service is not configured")
	}
	return cli.service, nil
}

func (cli *CLI) Entities() ([]domain.Entity, error) {
	if cli.settings == nil {
		return nil, nil
	}
	return cli.settings.ScheduledEntities()
}

func (cli *CLI) Reporter() *export.Reporter {
	if cli.reporter == nil {
		cli.reporter = export.NewReporter(cli.output, cli.currency)
	}
	return cli.reporter
}
