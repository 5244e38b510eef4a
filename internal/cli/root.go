package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/testbench/internal/config"
	"github.com/wesleyorama2/testbench/internal/logger"
	"github.com/wesleyorama2/testbench/internal/output"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "testbench",
	Short:   "Layered configuration and tooling for automated test suites",
	Version: version,
	Long: `testbench resolves the configuration shared by API, browser, database and
performance tests from defaults, config files, a .env file and environment
variables, and runs the tools that consume it.

Configuration is read from <config-dir>/config.{yaml,yml,json} and then
<config-dir>/config.<TEST_ENV>.{yaml,yml,json}; environment variables such
as API_BASE_URL or DB_HOST override both.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and prints a failure to stderr. It is
// called once from main.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(RootCmd.ErrOrStderr(), "%s %v\n", output.ErrorIcon(noColorFlag(RootCmd)), err)
		return err
	}
	return nil
}

// setup builds the logger and configuration manager shared by every
// command and loads the configuration. A configuration that fails
// validation stops the command.
func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	configDir, _ := flags.GetString("config-dir")
	envFile, _ := flags.GetString("env-file")
	logLevel, _ := flags.GetString("log-level")
	logJSON, _ := flags.GetBool("log-json")

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log := logger.New(&logger.Config{
		Level:      level,
		Output:     cmd.ErrOrStderr(),
		JSON:       logJSON,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})

	m := config.NewManager(
		config.WithConfigDir(configDir),
		config.WithEnvFile(envFile),
		config.WithLogger(log),
	)

	// Subcommands keep the context of a previous execution, so start from
	// the root's.
	ctx := cmd.Root().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithManager(ctx, m)
	cmd.SetContext(ctx)

	if _, err := m.Load(ctx); err != nil {
		return err
	}
	return nil
}

// manager returns the configuration manager attached by setup.
func manager(cmd *cobra.Command) *config.Manager {
	if m := config.ManagerFromContext(cmd.Context()); m != nil {
		return m
	}
	return config.NewManager()
}

func noColorFlag(cmd *cobra.Command) bool {
	noColor, _ := cmd.Root().PersistentFlags().GetBool("no-color")
	return output.ColorDisabled(cmd.OutOrStdout(), noColor)
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.String("config-dir", "config", "Directory holding config.* files")
	flags.String("env-file", ".env", "Dotenv file loaded before resolving configuration")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("no-color", false, "Disable colored output")

	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(requestCmd)
	RootCmd.AddCommand(perfCmd)
	RootCmd.AddCommand(dbCmd)
}
